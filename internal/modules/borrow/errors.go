package borrow

import "errors"

var (
	ErrNotFound        = errors.New("loan not found")
	ErrBookNotFound    = errors.New("book not found")
	ErrNoCopies        = errors.New("no copies available")
	ErrAlreadyBorrowed = errors.New("book already borrowed by user")
	ErrAlreadyReturned = errors.New("loan already returned")
	ErrForbidden       = errors.New("forbidden")
)
