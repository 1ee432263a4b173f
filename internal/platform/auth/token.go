package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the fixed validity window of an issued token.
const TokenTTL = 7 * 24 * time.Hour

var (
	ErrMissingSigningKey = errors.New("signing key is required")
	ErrInvalidToken      = errors.New("invalid token")
)

// Claims is the signed payload of a session token. The identifier travels in
// the standard "sub" claim and is bound to exactly one Role.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Identifier returns the admin username or doctor/patient email the token
// was issued to.
func (c *Claims) Identifier() string {
	return c.Subject
}

// TokenService issues and verifies HS256 session tokens. The signing key is
// injected once at construction and never changes afterwards.
type TokenService struct {
	key []byte
	now func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(key []byte, opts ...TokenOption) (*TokenService, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &TokenService{
		key: append([]byte(nil), key...),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token binding identifier to role, valid for TokenTTL.
func (s *TokenService) Issue(identifier string, role Role) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("identifier is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %d", int(role))
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identifier,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm, and validity window of a token and
// returns its claims. Every failure is reported as ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		// exp is exclusive in jwt; the window here closes only once now passes
		// iat+TokenTTL, which the check below enforces.
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || !claims.Role.Valid() || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	// The window is anchored to iat whatever exp says.
	if s.now().After(claims.IssuedAt.Add(TokenTTL)) {
		return nil, fmt.Errorf("%w: issued more than %s ago", ErrInvalidToken, TokenTTL)
	}
	return claims, nil
}

// IdentifierOf returns the identifier embedded in a valid token, or false on
// any failure.
func (s *TokenService) IdentifierOf(tokenStr string) (string, bool) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}
