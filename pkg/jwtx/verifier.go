package jwtx

import (
	"errors"
	"fmt"
	"time"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")

	// ErrNotYetValid is wrapped in a malformed VerifyError when nbf is in the future.
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	// ErrMissingExpiry is wrapped in a malformed VerifyError when exp is absent.
	ErrMissingExpiry = errors.New("jwtx: missing exp claim")
)

// Kind classifies a verification failure. The distinction is for logs and
// metrics only, callers facing clients should collapse them.
type Kind int

const (
	KindMalformed Kind = iota + 1
	KindInvalidSignature
	KindExpired
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerifyError is the single error type returned by verifiers in this package.
type VerifyError struct {
	Kind Kind

	// At is the expiry instant, only set for KindExpired.
	At time.Time

	Err error
}

func (e *VerifyError) Error() string {
	switch {
	case e.Kind == KindExpired:
		return fmt.Sprintf("jwtx: token expired at %s", e.At.UTC().Format(time.RFC3339))
	case e.Err != nil:
		return fmt.Sprintf("jwtx: %s: %v", e.Kind, e.Err)
	default:
		return "jwtx: " + e.Kind.String()
	}
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels against a VerifyError.
func (e *VerifyError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrInvalidSig:
		return e.Kind == KindInvalidSignature
	case ErrExpired:
		return e.Kind == KindExpired
	}
	return false
}

// KindOf reports the failure kind of err, or 0 when err did not come from a
// verifier.
func KindOf(err error) Kind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}

func malformed(err error) error {
	return &VerifyError{Kind: KindMalformed, Err: err}
}

func invalidSig(err error) error {
	return &VerifyError{Kind: KindInvalidSignature, Err: err}
}

func expired(at time.Time) error {
	return &VerifyError{Kind: KindExpired, At: at}
}
