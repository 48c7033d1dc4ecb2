// Package events carries the bridge's typed security events to whatever sinks
// are configured. Verifier and reconcile distinctions that clients never see
// (bad signature vs expired, inactive vs unknown) end up here.
package events

import (
	"context"
	"time"
)

// Outcome labels used across sinks.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Reporter receives events from the gate, the reconciler and the provider
// calls. Implementations must be safe for concurrent use and must not block.
type Reporter interface {
	// TokenRejected is reported for every failed signature verification,
	// with the verifier's internal reason (malformed, invalid_signature, expired).
	TokenRejected(ctx context.Context, reason string, err error)

	// Decision is reported once per gate call. kind is superadmin,
	// authenticated, anonymous or denied.
	Decision(ctx context.Context, kind string, roleID int, reason string)

	// Reconciled is reported once per reconcile with the outcome, or the
	// failure kind (not_verified, account_not_found, account_inactive, store).
	Reconciled(ctx context.Context, document string, outcome string)

	// UpstreamCall is reported after every provider round trip.
	UpstreamCall(ctx context.Context, op string, outcome string, took time.Duration)
}

// Nop drops everything.
type Nop struct{}

func (Nop) TokenRejected(context.Context, string, error) {}
func (Nop) Decision(context.Context, string, int, string) {}
func (Nop) Reconciled(context.Context, string, string) {}
func (Nop) UpstreamCall(context.Context, string, string, time.Duration) {}

// Multi fans an event out to several reporters in order.
type Multi []Reporter

func (m Multi) TokenRejected(ctx context.Context, reason string, err error) {
	for _, r := range m {
		r.TokenRejected(ctx, reason, err)
	}
}

func (m Multi) Decision(ctx context.Context, kind string, roleID int, reason string) {
	for _, r := range m {
		r.Decision(ctx, kind, roleID, reason)
	}
}

func (m Multi) Reconciled(ctx context.Context, document string, outcome string) {
	for _, r := range m {
		r.Reconciled(ctx, document, outcome)
	}
}

func (m Multi) UpstreamCall(ctx context.Context, op string, outcome string, took time.Duration) {
	for _, r := range m {
		r.UpstreamCall(ctx, op, outcome, took)
	}
}

// OrNop returns r, or Nop when r is nil, so callers never nil-check.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop{}
	}
	return r
}
