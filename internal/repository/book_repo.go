package repository

import (
	"context"
	"strings"

	"librarium/internal/domain"

	"gorm.io/gorm"
)

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

type BookFilter struct {
	Query  string
	Genre  string
	Author string
	Limit  int
	Offset int
}

func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	var b domain.Book
	err := r.db.WithContext(ctx).First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) List(ctx context.Context, f BookFilter) ([]domain.Book, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Book{})

	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR isbn = ?", like, like, s)
	}
	if f.Genre != "" {
		q = q.Where("genre = ?", f.Genre)
	}
	if f.Author != "" {
		q = q.Where("author = ?", f.Author)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var books []domain.Book
	err := q.Order("title ASC").Limit(limit).Offset(f.Offset).Find(&books).Error
	return books, total, err
}

func (r *BookRepository) Update(ctx context.Context, b *domain.Book) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Book{}, id).Error
}

// AdjustAvailable changes available_copies by delta, guarded so the count
// never leaves the [0, total_copies] range.
func (r *BookRepository) AdjustAvailable(ctx context.Context, id int64, delta int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Book{}).
		Where("id = ? AND available_copies + ? >= 0 AND available_copies + ? <= total_copies", id, delta, delta).
		Update("available_copies", gorm.Expr("available_copies + ?", delta))
	return res.RowsAffected, res.Error
}
