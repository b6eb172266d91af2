package repository

import (
	"context"

	"librarium/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WishlistRepository struct {
	db *gorm.DB
}

func NewWishlistRepository(db *gorm.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add is idempotent: re-adding a wished book is a no-op.
func (r *WishlistRepository) Add(ctx context.Context, item *domain.WishlistItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(item).Error
}

func (r *WishlistRepository) Remove(ctx context.Context, userID, bookID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&domain.WishlistItem{})
	return res.RowsAffected, res.Error
}

func (r *WishlistRepository) ListByUser(ctx context.Context, userID int64) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}
