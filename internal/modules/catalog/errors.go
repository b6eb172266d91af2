package catalog

import "errors"

var (
	ErrNotFound      = errors.New("book not found")
	ErrDuplicateISBN = errors.New("isbn already registered")
	ErrInvalidCopies = errors.New("total copies below checked-out count")
)
