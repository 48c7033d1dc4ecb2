package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
)

// EqualSecret compares two secrets in constant time. Both sides are hashed
// first so neither the content nor the length of want leaks through timing.
// An empty want never matches.
func EqualSecret(got, want string) bool {
	if want == "" {
		return false
	}
	a := sha256.Sum256([]byte(got))
	b := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
