package auth

import (
	"context"
	"time"

	"librarium/internal/domain"
)

// UserRepositoryInterface covers only the methods the auth flow needs from user
// storage. The auth core never mutates user fields beyond the last-login
// stamp and the password hash / verified flag on the explicit flows.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	MarkEmailVerified(ctx context.Context, id int64) error
}

// TokenRepositoryInterface is durable token storage as consumed by the
// lifecycle service.
type TokenRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Token) error
	GetByValue(ctx context.Context, value string) (*domain.Token, error)
	MarkUsed(ctx context.Context, id int64, at time.Time) (int64, error)
	Revoke(ctx context.Context, id int64, at time.Time) error
	UpdateLastUsed(ctx context.Context, id int64, at time.Time) error
	ListLiveByUser(ctx context.Context, userID int64, typ domain.TokenType) ([]domain.Token, error)
	CountLiveByUser(ctx context.Context, userID int64, typ domain.TokenType) (int64, error)
	RevokeAllByUser(ctx context.Context, userID int64, typ domain.TokenType, at time.Time) ([]domain.Token, error)
}
