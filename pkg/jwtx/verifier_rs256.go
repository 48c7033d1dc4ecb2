package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier validates provider tokens signed using RS256 against one
// public key. The key is handed in by whoever loaded it at start up and is
// never swapped afterwards, so concurrent Verify calls need no locking.
type RS256Verifier struct {
	key    *rsa.PublicKey
	leeway time.Duration
	now    func() time.Time
}

// VerifierOption tweaks an RS256Verifier.
type VerifierOption func(*RS256Verifier)

// WithLeeway allows small clock skew when checking exp/nbf.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *RS256Verifier) { v.leeway = d }
}

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *RS256Verifier) { v.now = now }
}

// NewVerifierRS256 creates a verifier bound to the provider's public key.
func NewVerifierRS256(key *rsa.PublicKey, opts ...VerifierOption) *RS256Verifier {
	v := &RS256Verifier{
		key: key,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify validates the JWT string and returns its parsed Claims.
//
// Structure is checked first, then expiry, then algorithm and signature. An
// expired token is reported as expired whatever its signature looks like.
func (v *RS256Verifier) Verify(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, malformed(errors.New("empty token"))
	}

	// 1. Pull the claims apart without trusting them yet
	var unverified Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &unverified); err != nil {
		return Claims{}, malformed(err)
	}

	// 2. Expiry
	if err := unverified.ValidateExpiryAt(v.now(), v.leeway); err != nil {
		return Claims{}, err
	}

	// 3. Algorithm and signature. Claims validation is ours, not the parser's.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if v.key == nil {
			return nil, errors.New("jwtx: no verification key loaded")
		}
		return v.key, nil
	})
	if err != nil {
		return Claims{}, invalidSig(fmt.Errorf("parse or verify: %w", err))
	}
	if !token.Valid {
		return Claims{}, invalidSig(errors.New("token not valid"))
	}

	// 4. The bridge can't do anything with a token that names nobody
	if claims.Document == "" {
		return Claims{}, malformed(errors.New("missing documento claim"))
	}

	return claims, nil
}
