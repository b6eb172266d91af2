package review

import (
	"context"
	"errors"
	"strings"

	"librarium/internal/domain"
	"librarium/internal/repository"

	"gorm.io/gorm"
)

type Service struct {
	reviews *repository.ReviewRepository
	books   *repository.BookRepository
}

func NewService(reviews *repository.ReviewRepository, books *repository.BookRepository) *Service {
	return &Service{reviews: reviews, books: books}
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateReviewRequest) (*domain.Review, error) {
	if userID <= 0 || req.BookID <= 0 || req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRequest
	}

	if _, err := s.books.GetByID(ctx, req.BookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	exists, err := s.reviews.ExistsByUserAndBook(ctx, userID, req.BookID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	rv := &domain.Review{
		UserID:  userID,
		BookID:  req.BookID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return rv, nil
}

func (s *Service) ListByBook(ctx context.Context, bookID int64) ([]domain.Review, error) {
	return s.reviews.ListByBook(ctx, bookID)
}

// Delete removes the caller's own review; librarians and admins may remove
// anyone's.
func (s *Service) Delete(ctx context.Context, userID int64, role domain.UserRole, reviewID int64) error {
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if rv.UserID != userID && role != domain.RoleAdmin && role != domain.RoleLibrarian {
		return ErrForbidden
	}
	return s.reviews.Delete(ctx, reviewID)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
