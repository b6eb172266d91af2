package auth

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"librarium/internal/domain"
	"librarium/internal/pkg/audit"
	"librarium/internal/pkg/mailer"
)

// Service is the login/logout/refresh entry point. It gates credential
// checks behind the attempt tracker and delegates every token decision to
// the lifecycle service.
type Service struct {
	users    UserRepositoryInterface
	tokens   *TokenService
	attempts *AttemptTracker
	sender   mailer.Sender
	sink     audit.Sink
}

func NewService(
	users UserRepositoryInterface,
	tokens *TokenService,
	attempts *AttemptTracker,
	sender mailer.Sender,
	sink audit.Sink,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		attempts: attempts,
		sender:   sender,
		sink:     sink,
	}
}

type LoginResult struct {
	User    *domain.User
	Access  *domain.Token
	Refresh *domain.Token
}

// Login authenticates username/password from the given client. A locked
// client key fails fast with the unlock time before any credential check, so
// lockout leaks nothing about whether the account exists.
func (s *Service) Login(ctx context.Context, req LoginRequest, meta ClientMeta) (*LoginResult, error) {
	key := meta.IP
	if s.attempts.IsBlocked(key) {
		return nil, &AccountLockedError{Until: s.attempts.BlockedUntil(key)}
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.failAttempt(ctx, key)
		}
		return nil, err
	}

	if err := CheckPassword(req.Password, user.PasswordHash); err != nil {
		return nil, s.failAttempt(ctx, key)
	}

	s.attempts.RecordSuccess(key)

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}

	access, err := s.tokens.Issue(ctx, user, domain.TokenAccess, meta)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(ctx, user, domain.TokenRefresh, meta)
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, audit.KindLoginSuccess, strconv.FormatInt(user.ID, 10), meta.IP)
	return &LoginResult{User: user, Access: access, Refresh: refresh}, nil
}

func (s *Service) failAttempt(ctx context.Context, key string) error {
	s.attempts.RecordFailure(ctx, key)
	s.sink.Record(ctx, audit.KindLoginFailure, key, "")

	if s.attempts.IsBlocked(key) {
		return &AccountLockedError{Until: s.attempts.BlockedUntil(key)}
	}
	return &RemainingAttemptsError{Remaining: s.attempts.RemainingAttempts(key)}
}

// Logout revokes the presented access token, the paired refresh token when
// supplied, and then every other live access token of the same user. A kill
// switch on explicit logout is deliberately broad.
func (s *Service) Logout(ctx context.Context, accessValue, refreshValue string) error {
	record, err := s.tokens.ResolveByValue(ctx, accessValue)
	if err != nil {
		return err
	}

	if err := s.tokens.Revoke(ctx, accessValue); err != nil {
		return err
	}
	if refreshValue != "" {
		if err := s.tokens.Revoke(ctx, refreshValue); err != nil {
			return err
		}
	}

	if record != nil {
		return s.tokens.RevokeAll(ctx, record.UserID, domain.TokenAccess)
	}
	return nil
}

// Refresh exchanges a refresh token for a new access token, rotating the
// refresh token when it is close to expiry.
func (s *Service) Refresh(ctx context.Context, refreshValue string, meta ClientMeta) (*RefreshResult, error) {
	return s.tokens.Refresh(ctx, refreshValue, meta)
}

// Register creates a member account and kicks off email verification.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         domain.RoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.RequestEmailVerification(ctx, user.Email); err != nil {
		// Verification mail can be re-requested; registration stands.
		log.Printf("auth: verification request after register failed: %v", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// RequestPasswordReset issues a single-use reset token and hands it to the
// sender. Unknown emails are accepted silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("auth: reset requested for unknown email (masked)")
			return nil
		}
		return err
	}

	token, err := s.tokens.IssueSingleUse(ctx, user, domain.TokenPasswordReset, ClientMeta{})
	if err != nil {
		return err
	}
	return s.sender.Deliver(ctx, user.Email, mailer.PurposePasswordReset, token.Value)
}

// ConfirmPasswordReset redeems a reset token and installs the new password.
// All refresh tokens of the user are revoked: a stolen session must not
// survive a password reset.
func (s *Service) ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword string) error {
	token, err := s.tokens.RedeemSingleUse(ctx, tokenValue, domain.TokenPasswordReset)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, token.UserID, hash); err != nil {
		return err
	}

	s.afterCredentialChange(ctx, token.UserID)
	return nil
}

// ChangePassword verifies the current password before installing the new
// one. Same refresh-token revocation as a reset.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.afterCredentialChange(ctx, userID)
	return nil
}

func (s *Service) afterCredentialChange(ctx context.Context, userID int64) {
	subject := strconv.FormatInt(userID, 10)
	s.sink.Record(ctx, audit.KindPasswordChange, subject, "")

	if err := s.tokens.RevokeAll(ctx, userID, domain.TokenRefresh); err != nil {
		log.Printf("auth: refresh revocation after credential change failed: %v", err)
	}
	if user, err := s.users.GetByID(ctx, userID); err == nil {
		s.tokens.DropUserFromCache(user.Username)
	}
}

// RequestEmailVerification issues a single-use verification token for the
// address. Already-verified and unknown accounts are accepted silently.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	token, err := s.tokens.IssueSingleUse(ctx, user, domain.TokenEmailVerification, ClientMeta{})
	if err != nil {
		return err
	}
	return s.sender.Deliver(ctx, user.Email, mailer.PurposeEmailVerification, token.Value)
}

// ConfirmEmailVerification redeems a verification token and flags the user.
func (s *Service) ConfirmEmailVerification(ctx context.Context, tokenValue string) error {
	token, err := s.tokens.RedeemSingleUse(ctx, tokenValue, domain.TokenEmailVerification)
	if err != nil {
		return err
	}
	return s.users.MarkEmailVerified(ctx, token.UserID)
}

// GetCurrentUser loads the authenticated user's profile.
func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}
