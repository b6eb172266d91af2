package borrow

import (
	"context"
	"errors"
	"time"

	"librarium/internal/domain"
	"librarium/internal/repository"

	"gorm.io/gorm"
)

const defaultLoanPeriod = 21 * 24 * time.Hour

type Service struct {
	borrows *repository.BorrowRepository
	books   *repository.BookRepository
}

func NewService(borrows *repository.BorrowRepository, books *repository.BookRepository) *Service {
	return &Service{borrows: borrows, books: books}
}

// Borrow checks out one copy of a book. The availability decrement is a
// guarded UPDATE, so two racing borrowers cannot take the last copy twice.
func (s *Service) Borrow(ctx context.Context, userID, bookID int64) (*domain.Borrow, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	active, err := s.borrows.HasActiveBorrow(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadyBorrowed
	}

	affected, err := s.books.AdjustAvailable(ctx, bookID, -1)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNoCopies
	}

	now := time.Now()
	loan := &domain.Borrow{
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: now,
		DueAt:      now.Add(defaultLoanPeriod),
	}
	if err := s.borrows.Create(ctx, loan); err != nil {
		// Give the copy back; the loan row never materialized.
		_, _ = s.books.AdjustAvailable(ctx, bookID, 1)
		return nil, err
	}
	return loan, nil
}

// Return closes a loan and restores the copy.
func (s *Service) Return(ctx context.Context, userID, loanID int64) (*domain.Borrow, error) {
	loan, err := s.borrows.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if loan.UserID != userID {
		return nil, ErrForbidden
	}

	now := time.Now()
	affected, err := s.borrows.MarkReturned(ctx, loanID, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyReturned
	}

	if _, err := s.books.AdjustAvailable(ctx, loan.BookID, 1); err != nil {
		return nil, err
	}

	loan.ReturnedAt = &now
	return loan, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Borrow, error) {
	return s.borrows.ListByUser(ctx, userID)
}
