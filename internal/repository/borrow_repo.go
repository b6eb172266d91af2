package repository

import (
	"context"
	"time"

	"librarium/internal/domain"

	"gorm.io/gorm"
)

type BorrowRepository struct {
	db *gorm.DB
}

func NewBorrowRepository(db *gorm.DB) *BorrowRepository {
	return &BorrowRepository{db: db}
}

func (r *BorrowRepository) Create(ctx context.Context, b *domain.Borrow) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BorrowRepository) GetByID(ctx context.Context, id int64) (*domain.Borrow, error) {
	var b domain.Borrow
	err := r.db.WithContext(ctx).Preload("Book").First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BorrowRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Borrow, error) {
	var borrows []domain.Borrow
	err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ?", userID).
		Order("borrowed_at DESC").
		Find(&borrows).Error
	return borrows, err
}

func (r *BorrowRepository) HasActiveBorrow(ctx context.Context, userID, bookID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Borrow{}).
		Where("user_id = ? AND book_id = ? AND returned_at IS NULL", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// MarkReturned stamps returned_at iff the loan is still open; zero rows
// affected means it was already returned.
func (r *BorrowRepository) MarkReturned(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Borrow{}).
		Where("id = ? AND returned_at IS NULL", id).
		Update("returned_at", at)
	return res.RowsAffected, res.Error
}
