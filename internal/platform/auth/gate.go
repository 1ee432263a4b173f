package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/platform/apperr"
)

// ErrIdentityNotFound is returned by an IdentityStore when no account in the
// role's store holds the identifier.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityStore resolves a token identifier to an account id within the
// store belonging to role: admins by username, doctors and patients by email.
type IdentityStore interface {
	Resolve(ctx context.Context, role Role, identifier string) (uuid.UUID, error)
}

// Principal is an authenticated caller.
type Principal struct {
	Role       Role
	Identifier string
	SubjectID  uuid.UUID
	TokenID    string
	ExpiresAt  time.Time
}

// Gate is the single authorization choke point. It never tells the caller
// why a token was refused.
type Gate struct {
	tokens     *TokenService
	identities IdentityStore
	revoked    *RevocationStore
}

// NewGate wires a gate. revoked may be nil when logout is not supported.
func NewGate(tokens *TokenService, identities IdentityStore, revoked *RevocationStore) *Gate {
	return &Gate{tokens: tokens, identities: identities, revoked: revoked}
}

// Authorize admits token only if it is a live token for required whose
// identifier still exists in required's identity store.
func (g *Gate) Authorize(ctx context.Context, token string, required Role) (*Principal, error) {
	return g.AuthorizeAny(ctx, token, required)
}

// AuthorizeAny is Authorize for endpoints shared by several roles.
func (g *Gate) AuthorizeAny(ctx context.Context, token string, allowed ...Role) (*Principal, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized()
	}
	if !roleAllowed(claims.Role, allowed) {
		return nil, apperr.Unauthorized()
	}
	if g.revoked != nil && g.revoked.IsRevoked(claims.ID) {
		return nil, apperr.Unauthorized()
	}

	id, err := g.identities.Resolve(ctx, claims.Role, claims.Subject)
	if errors.Is(err, ErrIdentityNotFound) {
		return nil, apperr.Unauthorized()
	}
	if err != nil {
		return nil, apperr.Internal("resolve identity", err)
	}

	p := &Principal{
		Role:       claims.Role,
		Identifier: claims.Subject,
		SubjectID:  id,
		TokenID:    claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// IsValidFor reports whether token would be admitted for role.
func (g *Gate) IsValidFor(ctx context.Context, token string, role Role) bool {
	_, err := g.Authorize(ctx, token, role)
	return err == nil
}

// Revoke invalidates the principal's token for the rest of its lifetime.
func (g *Gate) Revoke(p *Principal) {
	if g.revoked == nil || p == nil {
		return
	}
	g.revoked.Revoke(p.TokenID, p.ExpiresAt)
}

func roleAllowed(r Role, allowed []Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
