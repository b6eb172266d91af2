package domain

import "time"

type TokenType string

const (
	TokenAccess            TokenType = "ACCESS"
	TokenRefresh           TokenType = "REFRESH"
	TokenPasswordReset     TokenType = "PASSWORD_RESET"
	TokenEmailVerification TokenType = "EMAIL_VERIFICATION"
)

// TokenPolicy fixes the per-type issuance rules. Looked up by type tag so the
// TTL/single-use branching lives in one table instead of scattered switches.
type TokenPolicy struct {
	TTL       time.Duration
	SingleUse bool
}

// DefaultTokenPolicies returns the issuance policy table. Access and refresh
// TTLs are overridable via config; reset/verification windows are fixed.
func DefaultTokenPolicies(accessTTL, refreshTTL time.Duration) map[TokenType]TokenPolicy {
	return map[TokenType]TokenPolicy{
		TokenAccess:            {TTL: accessTTL},
		TokenRefresh:           {TTL: refreshTTL},
		TokenPasswordReset:     {TTL: time.Hour, SingleUse: true},
		TokenEmailVerification: {TTL: 24 * time.Hour, SingleUse: true},
	}
}

// Token is one issued credential.
//
// Security notes:
//   - Value is the signed wire token; Identifier is a separate opaque id so
//     records can be referenced without exposing the bearer value.
//   - RevokedAt and UsedAt only ever go nil -> non-nil.
//   - IP/UserAgent/DeviceClass are captured at issuance for forensics and
//     never updated afterwards.
type Token struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	Value      string    `json:"-" gorm:"uniqueIndex;size:1024;not null"`
	Identifier string    `json:"identifier" gorm:"uniqueIndex;size:36;not null"`
	Type       TokenType `json:"type" gorm:"index;size:32;not null"`

	UserID int64 `json:"user_id" gorm:"index;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	IssuedAt  time.Time `json:"issued_at" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`

	RevokedAt  *time.Time `json:"revoked_at,omitempty" gorm:"index"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	IPAddress   string `json:"ip_address,omitempty" gorm:"size:64"`
	UserAgent   string `json:"user_agent,omitempty" gorm:"size:512"`
	DeviceClass string `json:"device_class,omitempty" gorm:"size:64"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *Token) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

// IsLive reports whether the token is still redeemable: not expired, not
// revoked and, for single-use types, not already used.
func (t *Token) IsLive(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsRevoked() && !t.IsUsed()
}
