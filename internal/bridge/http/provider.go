package http

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
)

// Provider is the part of the provider client the handlers use.
// *providersdk.Client implements it.
type Provider interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, token, permisoID string) (*providersdk.Profile, error)
	ReissueToken(ctx context.Context, token string, supplement providersdk.Supplement) (string, error)
}

var _ Provider = (*providersdk.Client)(nil)

// timed reports one provider round trip, whatever its outcome.
func timed(ctx context.Context, reporter events.Reporter, op string, call func() error) error {
	start := time.Now()
	err := call()

	outcome := events.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, providersdk.ErrRejected):
		outcome = events.OutcomeRejected
	default:
		outcome = events.OutcomeError
	}

	events.OrNop(reporter).UpstreamCall(ctx, op, outcome, time.Since(start))
	return err
}
