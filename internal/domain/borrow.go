package domain

import "time"

type BorrowStatus string

const (
	BorrowActive   BorrowStatus = "active"
	BorrowReturned BorrowStatus = "returned"
	BorrowOverdue  BorrowStatus = "overdue"
)

type Borrow struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"index;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	BookID int64 `json:"book_id" gorm:"index;not null"`
	Book   Book  `json:"book,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`

	BorrowedAt time.Time  `json:"borrowed_at" gorm:"not null"`
	DueAt      time.Time  `json:"due_at" gorm:"index;not null"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (b *Borrow) Status(now time.Time) BorrowStatus {
	switch {
	case b.ReturnedAt != nil:
		return BorrowReturned
	case now.After(b.DueAt):
		return BorrowOverdue
	default:
		return BorrowActive
	}
}
