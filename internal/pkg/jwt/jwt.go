package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures, split so callers can report expiry separately from
// forgery or garbage input.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("token signature invalid")
)

const refreshMarker = "REFRESH"

type Claims struct {
	Roles     []string `json:"roles"`
	TokenID   string   `json:"tokenId"`
	TokenType string   `json:"type,omitempty"`
	jwtlib.RegisteredClaims
}

// IsRefresh reports whether the refresh marker claim is present. The marker
// is embedded at the signature layer so an access token can never be replayed
// as a refresh token even if the store were confused about its type.
func (c *Claims) IsRefresh() bool {
	return c.TokenType == refreshMarker
}

// Signer creates and verifies HMAC-SHA256 signed tokens. It is stateless:
// verification proves origin and embedded expiry only, liveness is layered on
// top by the token service.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign produces the wire token for the given subject. The returned token id
// is random per token and also stored on the persisted record.
func (s *Signer) Sign(username string, roles []string, ttl time.Duration, refresh bool) (value string, tokenID string, err error) {
	now := time.Now()
	tokenID = uuid.NewString()

	claims := Claims{
		Roles:   roles,
		TokenID: tokenID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	if refresh {
		claims.TokenType = refreshMarker
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	value, err = token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return value, tokenID, nil
}

// Verify parses and checks the signature and embedded expiry of a wire token.
// It never consults any store.
func (s *Signer) Verify(value string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(value, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformed
	}
	return claims, nil
}
