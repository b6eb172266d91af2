package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"librarium/internal/domain"
	jwtsvc "librarium/internal/pkg/jwt"
	"librarium/internal/pkg/tokencache"
	"librarium/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Token{}))
	return db
}

type tokenServiceFixture struct {
	svc    *TokenService
	tokens *repository.TokenRepository
	users  *repository.UserRepository
	sink   *recordingSink
	user   *domain.User
}

func newTokenServiceFixture(t *testing.T, cfg TokenServiceConfig) *tokenServiceFixture {
	t.Helper()
	db := openTestDB(t)

	caches, err := tokencache.New(tokencache.Options{MaxEntries: 100, EntryTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(caches.Close)

	tokens := repository.NewTokenRepository(db)
	users := repository.NewUserRepository(db)
	sink := &recordingSink{}

	user := &domain.User{Username: "marta", Email: "marta@example.com", PasswordHash: "x", Role: domain.RoleMember}
	require.NoError(t, users.Create(context.Background(), user))

	svc := NewTokenService(tokens, users, jwtsvc.NewSigner("test-secret"), caches, sink, cfg)
	return &tokenServiceFixture{svc: svc, tokens: tokens, users: users, sink: sink, user: user}
}

func defaultTestConfig() TokenServiceConfig {
	return TokenServiceConfig{
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       168 * time.Hour,
		RenewalThreshold: 24 * time.Hour,
		MaxTokensPerUser: 5,
	}
}

func TestIssueAndValidateAccess(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	token, err := f.svc.Issue(ctx, f.user, domain.TokenAccess, ClientMeta{IP: "10.0.0.1"})
	require.NoError(t, err)

	claims, err := f.svc.ValidateAccess(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, "marta", claims.Subject)
	assert.Equal(t, []string{"member"}, claims.Roles)
}

func TestValidateAccessUnknownToken(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())

	_, err := f.svc.ValidateAccess(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateAccessRejectsRefreshToken(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	refresh, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)

	_, err = f.svc.ValidateAccess(ctx, refresh.Value)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestValidateAccessExpired(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.AccessTTL = -time.Minute
	f := newTokenServiceFixture(t, cfg)
	ctx := context.Background()

	token, err := f.svc.Issue(ctx, f.user, domain.TokenAccess, ClientMeta{})
	require.NoError(t, err)

	_, err = f.svc.ValidateAccess(ctx, token.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevocationIsImmediate(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	token, err := f.svc.Issue(ctx, f.user, domain.TokenAccess, ClientMeta{})
	require.NoError(t, err)
	_, err = f.svc.ValidateAccess(ctx, token.Value)
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(ctx, token.Value))

	// The very next validation must fail, with no propagation window.
	_, err = f.svc.ValidateAccess(ctx, token.Value)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevokeUnknownValueStillBlacklists(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, f.svc.Revoke(ctx, "never-issued"))

	_, err := f.svc.ValidateAccess(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshFarFromExpiryDoesNotRotate(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	refresh, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)

	res, err := f.svc.Refresh(ctx, refresh.Value, ClientMeta{})
	require.NoError(t, err)
	assert.False(t, res.Rotated)
	assert.Equal(t, refresh.Value, res.Refresh.Value)
	assert.NotEmpty(t, res.Access.Value)

	// The same refresh token keeps working while far from expiry.
	res2, err := f.svc.Refresh(ctx, refresh.Value, ClientMeta{})
	require.NoError(t, err)
	assert.False(t, res2.Rotated)
	assert.NotEqual(t, res.Access.Value, res2.Access.Value)
}

func TestRefreshNearExpiryRotates(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RefreshTTL = 10 * time.Minute // inside the renewal threshold
	f := newTokenServiceFixture(t, cfg)
	ctx := context.Background()

	refresh, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)

	res, err := f.svc.Refresh(ctx, refresh.Value, ClientMeta{})
	require.NoError(t, err)
	assert.True(t, res.Rotated)
	assert.NotEqual(t, refresh.Value, res.Refresh.Value)

	// The replacement works.
	_, err = f.svc.Refresh(ctx, res.Refresh.Value, ClientMeta{})
	require.NoError(t, err)

	// Presenting the rotated-out value again reads as reuse, not as a plain
	// revocation.
	_, err = f.svc.Refresh(ctx, refresh.Value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestReplayAfterRotationRevokesFamily(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RefreshTTL = 10 * time.Minute // inside the renewal threshold
	f := newTokenServiceFixture(t, cfg)
	ctx := context.Background()

	stolen, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)

	res, err := f.svc.Refresh(ctx, stolen.Value, ClientMeta{})
	require.NoError(t, err)
	require.True(t, res.Rotated)

	// An attacker replaying the stolen, rotated-out value trips reuse
	// detection and takes the whole family down with it.
	_, err = f.svc.Refresh(ctx, stolen.Value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)

	count, err := f.tokens.CountLiveByUser(ctx, f.user.ID, domain.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = f.svc.Refresh(ctx, res.Refresh.Value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRotationLoserDoesNotRevokeFamily(t *testing.T) {
	users := &MockUserRepository{}
	tokens := &MockTokenRepository{}
	caches, err := tokencache.New(tokencache.Options{MaxEntries: 100, EntryTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(caches.Close)

	cfg := defaultTestConfig()
	cfg.RefreshTTL = 10 * time.Minute
	signer := jwtsvc.NewSigner("test-secret")
	svc := NewTokenService(tokens, users, signer, caches, &recordingSink{}, cfg)

	value, tokenID, err := signer.Sign("marta", []string{"member"}, 10*time.Minute, true)
	require.NoError(t, err)
	now := time.Now()
	record := &domain.Token{
		ID: 5, Value: value, Identifier: tokenID, Type: domain.TokenRefresh,
		UserID: 1, IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}
	user := &domain.User{ID: 1, Username: "marta", Role: domain.RoleMember}

	tokens.On("GetByValue", mock.Anything, value).Return(record, nil)
	users.On("GetByID", mock.Anything, int64(1)).Return(user, nil)
	tokens.On("Create", mock.Anything, mock.Anything).Return(nil)
	// The record read as unused, but a concurrent refresh won the guarded
	// update in between.
	tokens.On("MarkUsed", mock.Anything, int64(5), mock.Anything).Return(int64(0), nil)

	_, err = svc.Refresh(context.Background(), value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)

	// Losing the race is not a replay; the winner's session survives.
	tokens.AssertNotCalled(t, "RevokeAllByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshRotationIsFirstWriterWins(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	refresh, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)

	now := time.Now()
	affected, err := f.tokens.MarkUsed(ctx, refresh.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// The second writer loses the guarded update.
	affected, err = f.tokens.MarkUsed(ctx, refresh.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	victim, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)
	sibling, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
	require.NoError(t, err)

	// Simulate a rotation that already consumed the victim elsewhere.
	affected, err := f.tokens.MarkUsed(ctx, victim.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	_, err = f.svc.Refresh(ctx, victim.Value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenReused)

	// Every refresh token of the user is gone, not just the reused one.
	count, err := f.tokens.CountLiveByUser(ctx, f.user.ID, domain.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = f.svc.Refresh(ctx, sibling.Value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshQuotaEvictsOldest(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	issued := make([]*domain.Token, 0, 6)
	for i := 0; i < 6; i++ {
		tok, err := f.svc.Issue(ctx, f.user, domain.TokenRefresh, ClientMeta{})
		require.NoError(t, err)
		issued = append(issued, tok)
		time.Sleep(2 * time.Millisecond) // distinct issued_at ordering
	}

	count, err := f.tokens.CountLiveByUser(ctx, f.user.ID, domain.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// The oldest token was the one evicted, and its value is dead.
	_, err = f.svc.Refresh(ctx, issued[0].Value, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The newest still works.
	_, err = f.svc.Refresh(ctx, issued[5].Value, ClientMeta{})
	require.NoError(t, err)
}

func TestRevokeAllKillsEveryToken(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	var values []string
	for i := 0; i < 3; i++ {
		tok, err := f.svc.Issue(ctx, f.user, domain.TokenAccess, ClientMeta{})
		require.NoError(t, err)
		values = append(values, tok.Value)
	}

	require.NoError(t, f.svc.RevokeAll(ctx, f.user.ID, domain.TokenAccess))

	for _, v := range values {
		_, err := f.svc.ValidateAccess(ctx, v)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	}
}

func TestSingleUseRedeemOnce(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	token, err := f.svc.IssueSingleUse(ctx, f.user, domain.TokenPasswordReset, ClientMeta{})
	require.NoError(t, err)

	got, err := f.svc.RedeemSingleUse(ctx, token.Value, domain.TokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, got.UserID)

	_, err = f.svc.RedeemSingleUse(ctx, token.Value, domain.TokenPasswordReset)
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestSingleUseTypeMismatch(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())
	ctx := context.Background()

	token, err := f.svc.IssueSingleUse(ctx, f.user, domain.TokenEmailVerification, ClientMeta{})
	require.NoError(t, err)

	// A verification token must not open the password-reset door.
	_, err = f.svc.RedeemSingleUse(ctx, token.Value, domain.TokenPasswordReset)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestIssueSingleUseRejectsWrongType(t *testing.T) {
	f := newTokenServiceFixture(t, defaultTestConfig())

	_, err := f.svc.IssueSingleUse(context.Background(), f.user, domain.TokenAccess, ClientMeta{})
	assert.Error(t, err)
}

func TestDeleteExpiredSweep(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.AccessTTL = -time.Minute
	f := newTokenServiceFixture(t, cfg)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, f.user, domain.TokenAccess, ClientMeta{})
	require.NoError(t, err)

	deleted, err := f.tokens.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
