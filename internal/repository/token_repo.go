package repository

import (
	"context"
	"time"

	"librarium/internal/domain"

	"gorm.io/gorm"
)

// TokenRepository is the durable store for issued tokens. One row per token;
// rows are only ever mutated to flip revoked/used flags and stamp last use.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.Token) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*domain.Token, error) {
	var t domain.Token
	err := r.db.WithContext(ctx).Where("value = ?", value).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Token, error) {
	var t domain.Token
	err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed flips the used flag iff the row is still unused and unrevoked.
// The guarded UPDATE is the compare-and-swap that makes refresh rotation
// first-writer-wins: the loser sees zero rows affected.
func (r *TokenRepository) MarkUsed(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Token{}).
		Where("id = ? AND used_at IS NULL AND revoked_at IS NULL", id).
		Updates(map[string]any{"used_at": at, "last_used_at": at})
	return res.RowsAffected, res.Error
}

func (r *TokenRepository) Revoke(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Token{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *TokenRepository) UpdateLastUsed(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Token{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// ListLiveByUser returns the user's live tokens of the given type, oldest
// issuance first (quota eviction order).
func (r *TokenRepository) ListLiveByUser(ctx context.Context, userID int64, typ domain.TokenType) ([]domain.Token, error) {
	var tokens []domain.Token
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND revoked_at IS NULL AND used_at IS NULL AND expires_at > ?",
			userID, typ, time.Now()).
		Order("issued_at ASC").
		Find(&tokens).Error
	return tokens, err
}

func (r *TokenRepository) CountLiveByUser(ctx context.Context, userID int64, typ domain.TokenType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Token{}).
		Where("user_id = ? AND type = ? AND revoked_at IS NULL AND used_at IS NULL AND expires_at > ?",
			userID, typ, time.Now()).
		Count(&count).Error
	return count, err
}

// RevokeAllByUser bulk-revokes the user's live tokens of the given type and
// returns the affected rows so callers can blacklist their values.
func (r *TokenRepository) RevokeAllByUser(ctx context.Context, userID int64, typ domain.TokenType, at time.Time) ([]domain.Token, error) {
	tokens, err := r.ListLiveByUser(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.ID)
	}
	err = r.db.WithContext(ctx).Model(&domain.Token{}).
		Where("id IN ? AND revoked_at IS NULL", ids).
		Update("revoked_at", at).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteExpired removes rows past expiry. Garbage collection only: validity
// is always re-checked from the record at validation time, never inferred
// from row existence.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&domain.Token{})
	return res.RowsAffected, res.Error
}
