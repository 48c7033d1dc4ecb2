package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the provider's access-token claims. The provider owns the
// format; we only read it, and re-issued tokens carry the same shape with the
// local fields filled in.
type Claims struct {
	jwt.RegisteredClaims

	// Document is the national id number, the join key to local accounts.
	Document string `json:"documento"`

	// GivenName and FamilyName as asserted by the provider
	GivenName  string `json:"nombre,omitempty"`
	FamilyName string `json:"apellido,omitempty"`

	/* Supplemental local fields, only present on re-issued tokens */

	// AccountID is the local account id.
	AccountID int64 `json:"id,omitempty"`

	// RoleID is the local role (tipo de usuario).
	RoleID int `json:"tipo_usuario_id,omitempty"`

	// AreaID is the organisational area the account belongs to, if any.
	AreaID *int64 `json:"area_id,omitempty"`
}

// NewClaims builds minimally-correct claims for a document. Only tests and
// fake providers mint tokens, the bridge itself never does.
func NewClaims(document string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   document,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Document: document,
	}
}

// ValidateExpiryAt checks exp/nbf against now with a small grace period for
// clock skew. Every provider token carries an expiry, one without is broken.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return malformed(ErrMissingExpiry)
	}

	// Check expired (exp)
	if now.After(c.ExpiresAt.Add(leeway)) {
		return expired(c.ExpiresAt.Time)
	}

	// A token used before it is valid is treated as a broken token (nbf)
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return malformed(ErrNotYetValid)
	}

	return nil
}
