package domain

import "time"

type WishlistItem struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"uniqueIndex:idx_wishlist_user_book;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	BookID int64 `json:"book_id" gorm:"uniqueIndex:idx_wishlist_user_book;not null"`
	Book   Book  `json:"book,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
}
