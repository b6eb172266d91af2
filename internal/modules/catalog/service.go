package catalog

import (
	"context"
	"errors"
	"strings"

	"librarium/internal/domain"
	"librarium/internal/repository"

	"gorm.io/gorm"
)

type Service struct {
	books *repository.BookRepository
}

func NewService(books *repository.BookRepository) *Service {
	return &Service{books: books}
}

func (s *Service) Create(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	book := &domain.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            strings.ReplaceAll(req.ISBN, " ", ""),
		Genre:           req.Genre,
		PublishedYear:   req.PublishedYear,
		Description:     req.Description,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	}

	if err := s.books.Create(ctx, book); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, err
	}
	return book, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *Service) List(ctx context.Context, q ListBooksQuery) ([]domain.Book, int64, error) {
	return s.books.List(ctx, repository.BookFilter{
		Query:  q.Query,
		Genre:  q.Genre,
		Author: q.Author,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateBookRequest) (*domain.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		book.Title = req.Title
	}
	if req.Author != "" {
		book.Author = req.Author
	}
	if req.Genre != "" {
		book.Genre = req.Genre
	}
	if req.PublishedYear != 0 {
		book.PublishedYear = req.PublishedYear
	}
	if req.Description != "" {
		book.Description = req.Description
	}
	if req.TotalCopies > 0 {
		checkedOut := book.TotalCopies - book.AvailableCopies
		if req.TotalCopies < checkedOut {
			return nil, ErrInvalidCopies
		}
		book.AvailableCopies = req.TotalCopies - checkedOut
		book.TotalCopies = req.TotalCopies
	}

	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.books.Delete(ctx, id)
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
