package domain

import "time"

type Review struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"uniqueIndex:idx_review_user_book;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	BookID int64 `json:"book_id" gorm:"uniqueIndex:idx_review_user_book;not null"`
	Book   Book  `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`

	Rating  int    `json:"rating" gorm:"not null"`
	Comment string `json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
