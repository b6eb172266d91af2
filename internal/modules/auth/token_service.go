package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"librarium/internal/domain"
	"librarium/internal/pkg/audit"
	"librarium/internal/pkg/jwt"
	"librarium/internal/pkg/tokencache"
)

// Durable-store calls on request paths carry a bounded timeout; on timeout
// validation fails closed.
const storeTimeout = 3 * time.Second

// ClientMeta is captured at issuance for forensics.
type ClientMeta struct {
	IP          string
	UserAgent   string
	DeviceClass string
}

// TokenService is the single authority for creating, validating, rotating
// and revoking tokens. It composes the signer, the durable token store and
// the cache layer; nothing else writes token rows.
type TokenService struct {
	tokens TokenRepositoryInterface
	users  UserRepositoryInterface
	signer *jwt.Signer
	caches *tokencache.Caches
	sink   audit.Sink

	policies         map[domain.TokenType]domain.TokenPolicy
	renewalThreshold time.Duration
	maxTokensPerUser int
}

type TokenServiceConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RenewalThreshold time.Duration
	MaxTokensPerUser int
}

func NewTokenService(
	tokens TokenRepositoryInterface,
	users UserRepositoryInterface,
	signer *jwt.Signer,
	caches *tokencache.Caches,
	sink audit.Sink,
	cfg TokenServiceConfig,
) *TokenService {
	return &TokenService{
		tokens:           tokens,
		users:            users,
		signer:           signer,
		caches:           caches,
		sink:             sink,
		policies:         domain.DefaultTokenPolicies(cfg.AccessTTL, cfg.RefreshTTL),
		renewalThreshold: cfg.RenewalThreshold,
		maxTokensPerUser: cfg.MaxTokensPerUser,
	}
}

func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// Issue mints and persists a token of the given type for user. Refresh
// issuance first makes room under the per-user quota and primes the refresh
// caches on success.
func (s *TokenService) Issue(ctx context.Context, user *domain.User, typ domain.TokenType, meta ClientMeta) (*domain.Token, error) {
	policy, ok := s.policies[typ]
	if !ok {
		return nil, fmt.Errorf("unknown token type %q", typ)
	}

	if typ == domain.TokenRefresh {
		if err := s.enforceQuota(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	value, tokenID, err := s.signer.Sign(user.Username, user.Roles(), policy.TTL, typ == domain.TokenRefresh)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := &domain.Token{
		Value:       value,
		Identifier:  tokenID,
		Type:        typ,
		UserID:      user.ID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(policy.TTL),
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
		DeviceClass: meta.DeviceClass,
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()
	if err := s.tokens.Create(cctx, token); err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}

	if typ == domain.TokenRefresh {
		s.caches.PutRefreshUser(value, user.Username)
		s.caches.PutRecord(token)
	}

	s.sink.Record(ctx, audit.KindTokenIssued, strconv.FormatInt(user.ID, 10), string(typ))
	return token, nil
}

// enforceQuota revokes the user's oldest live refresh tokens until the next
// issuance fits under maxTokensPerUser. Two racing issuances may both see
// "under quota" and transiently exceed it by one; the next issuance corrects
// that, so the race is left unsynchronized.
func (s *TokenService) enforceQuota(ctx context.Context, userID int64) error {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	count, err := s.tokens.CountLiveByUser(cctx, userID, domain.TokenRefresh)
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	if count < int64(s.maxTokensPerUser) {
		return nil
	}

	live, err := s.tokens.ListLiveByUser(cctx, userID, domain.TokenRefresh)
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}

	evict := len(live) - s.maxTokensPerUser + 1
	now := time.Now()
	for i := 0; i < evict && i < len(live); i++ {
		old := live[i]
		if err := s.tokens.Revoke(cctx, old.ID, now); err != nil {
			return fmt.Errorf("token store: %w", err)
		}
		s.dropFromCaches(old.Value)
		s.caches.Blacklist(old.Value)
	}
	if evict > 0 {
		s.sink.Record(ctx, audit.KindQuotaEviction, strconv.FormatInt(userID, 10),
			fmt.Sprintf("evicted %d refresh tokens", evict))
	}
	return nil
}

// ValidateAccess checks an access token: blacklist first (cheapest, catches
// the just-logged-out case), then the store record, then the signature.
func (s *TokenService) ValidateAccess(ctx context.Context, value string) (*jwt.Claims, error) {
	if s.caches.IsBlacklisted(value) {
		return nil, ErrTokenRevoked
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()
	record, err := s.caches.Record(cctx, value, func(c context.Context) (*domain.Token, error) {
		t, err := s.tokens.GetByValue(c, value)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}
	if record.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if record.IsExpired(time.Now()) {
		return nil, ErrTokenExpired
	}

	claims, err := s.signer.Verify(value)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenRevoked
		}
	}
	if claims.IsRefresh() {
		// A refresh token must never authorize an API call.
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// RefreshResult carries the outcome of a refresh call. Refresh is the old
// token when no rotation happened, or the freshly minted one.
type RefreshResult struct {
	Access  *domain.Token
	Refresh *domain.Token
	Rotated bool
}

// Refresh validates a refresh token, always mints a new access token, and
// rotates the refresh token only when it is close to expiry. Reuse of an
// already-rotated-out token revokes every refresh token of that user.
func (s *TokenService) Refresh(ctx context.Context, refreshValue string, meta ClientMeta) (*RefreshResult, error) {
	if s.caches.IsBlacklisted(refreshValue) {
		return nil, ErrTokenRevoked
	}

	claims, err := s.signer.Verify(refreshValue)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !claims.IsRefresh() {
		return nil, ErrTokenMalformed
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	record, err := s.tokens.GetByValue(cctx, refreshValue)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}

	now := time.Now()
	switch {
	case record.IsRevoked():
		return nil, ErrTokenRevoked
	case record.IsExpired(now):
		return nil, ErrTokenExpired
	case record.IsUsed():
		return nil, s.onReuseDetected(ctx, record)
	}

	user, err := s.caches.User(cctx, claims.Subject, func(c context.Context) (*domain.User, error) {
		u, err := s.users.GetByID(c, record.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return nil, ErrTokenNotFound
	}

	access, err := s.Issue(ctx, user, domain.TokenAccess, meta)
	if err != nil {
		return nil, err
	}

	// Far from expiry: keep the refresh token, just stamp its use.
	if record.ExpiresAt.After(now.Add(s.renewalThreshold)) {
		if err := s.tokens.UpdateLastUsed(cctx, record.ID, now); err != nil {
			return nil, fmt.Errorf("token store: %w", err)
		}
		return &RefreshResult{Access: access, Refresh: record}, nil
	}

	// Close to expiry: rotate. The guarded mark-used is the CAS that decides
	// the winner between two concurrent refreshes of the same value.
	affected, err := s.tokens.MarkUsed(cctx, record.ID, now)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	if affected == 0 {
		// Lost the race to a concurrent refresh of the same value. A benign
		// double-submit, not a replay: the winner's replacement stays valid.
		return nil, ErrTokenReused
	}

	// The rotated-out value is dead through the used flag, never the
	// blacklist: a later replay must reach the used check above and trigger
	// family revocation, not short-circuit as a plain revocation.
	s.dropFromCaches(refreshValue)

	next, err := s.Issue(ctx, user, domain.TokenRefresh, meta)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Access: access, Refresh: next, Rotated: true}, nil
}

// onReuseDetected handles presentation of an already-used refresh token: the
// whole family is treated as compromised and every refresh token of the user
// is revoked.
func (s *TokenService) onReuseDetected(ctx context.Context, record *domain.Token) error {
	subject := strconv.FormatInt(record.UserID, 10)
	s.sink.Record(ctx, audit.KindTokenReused, subject, record.Identifier)

	if err := s.RevokeAll(ctx, record.UserID, domain.TokenRefresh); err != nil {
		s.sink.Record(ctx, audit.KindTokenRevoked, subject,
			fmt.Sprintf("family revocation failed: %v", err))
	}
	return ErrTokenReused
}

// Revoke invalidates a single token by value: flips the row, blacklists the
// value and evicts it from the positive caches. Unknown values are still
// blacklisted so the fast path stays consistent.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	record, err := s.tokens.GetByValue(cctx, value)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("token store: %w", err)
	}
	if record != nil {
		if err := s.tokens.Revoke(cctx, record.ID, time.Now()); err != nil {
			return fmt.Errorf("token store: %w", err)
		}
		s.sink.Record(ctx, audit.KindTokenRevoked, strconv.FormatInt(record.UserID, 10), string(record.Type))
	}

	s.dropFromCaches(value)
	s.caches.Blacklist(value)
	return nil
}

// RevokeAll bulk-revokes the user's live tokens of the given type.
func (s *TokenService) RevokeAll(ctx context.Context, userID int64, typ domain.TokenType) error {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	revoked, err := s.tokens.RevokeAllByUser(cctx, userID, typ, time.Now())
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	for _, t := range revoked {
		s.dropFromCaches(t.Value)
		s.caches.Blacklist(t.Value)
	}
	if len(revoked) > 0 {
		s.sink.Record(ctx, audit.KindTokenRevoked, strconv.FormatInt(userID, 10),
			fmt.Sprintf("revoked %d %s tokens", len(revoked), typ))
	}
	return nil
}

// IssueSingleUse mints a password-reset or email-verification token. These
// are low volume and never touch the blacklist cache.
func (s *TokenService) IssueSingleUse(ctx context.Context, user *domain.User, typ domain.TokenType, meta ClientMeta) (*domain.Token, error) {
	policy, ok := s.policies[typ]
	if !ok || !policy.SingleUse {
		return nil, fmt.Errorf("token type %q is not single-use", typ)
	}
	return s.Issue(ctx, user, typ, meta)
}

// RedeemSingleUse validates a single-use token against the store and burns
// it. Exactly one redemption can win; later calls fail on the used flag.
func (s *TokenService) RedeemSingleUse(ctx context.Context, value string, typ domain.TokenType) (*domain.Token, error) {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	record, err := s.tokens.GetByValue(cctx, value)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}

	now := time.Now()
	switch {
	case record.Type != typ:
		return nil, ErrTokenNotFound
	case record.IsRevoked():
		return nil, ErrTokenRevoked
	case record.IsExpired(now):
		return nil, ErrTokenExpired
	case record.IsUsed():
		return nil, ErrTokenReused
	}

	affected, err := s.tokens.MarkUsed(cctx, record.ID, now)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	if affected == 0 {
		return nil, ErrTokenReused
	}
	return record, nil
}

// ResolveUser maps a token subject to its user id through the user snapshot
// cache, falling back to the user store on a miss.
func (s *TokenService) ResolveUser(ctx context.Context, username string) (int64, error) {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	user, err := s.caches.User(cctx, username, func(c context.Context) (*domain.User, error) {
		u, err := s.users.GetByUsername(c, username)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return u, err
	})
	if err != nil {
		return 0, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return 0, ErrTokenNotFound
	}
	return user.ID, nil
}

// ResolveByValue looks up the stored record for a wire token, or nil when
// the value is unknown.
func (s *TokenService) ResolveByValue(ctx context.Context, value string) (*domain.Token, error) {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	record, err := s.tokens.GetByValue(cctx, value)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	return record, nil
}

// DropUserFromCache evicts a cached user snapshot, used after profile or
// credential changes.
func (s *TokenService) DropUserFromCache(username string) {
	s.caches.DropUser(username)
}

func (s *TokenService) dropFromCaches(value string) {
	s.caches.DropRefreshUser(value)
	s.caches.DropRecord(value)
}
