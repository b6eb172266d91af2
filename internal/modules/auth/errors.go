package auth

import (
	"errors"
	"fmt"
	"time"
)

// Authentication failures surfaced to callers. Messages stay non-enumerating:
// a missing account and a wrong password report the same thing.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenReused        = errors.New("token reused")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenNotFound      = errors.New("token not found")
	ErrUserExists         = errors.New("username or email already registered")
)

// AccountLockedError carries the unlock time so handlers can shape the
// lockout response without a second lookup.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

// RemainingAttemptsError wraps ErrInvalidCredentials with how many failures
// remain before lockout.
type RemainingAttemptsError struct {
	Remaining int
}

func (e *RemainingAttemptsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.Remaining)
}

func (e *RemainingAttemptsError) Unwrap() error {
	return ErrInvalidCredentials
}
