package http

import (
	"context"

	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
)

type ctxKey int

const (
	ctxKeyDecision ctxKey = iota
	ctxKeyToken
)

func withDecision(ctx context.Context, d service.Decision) context.Context {
	return context.WithValue(ctx, ctxKeyDecision, d)
}

// DecisionFromContext returns the gate's decision for the request. ok is false
// when the route is not guarded.
func DecisionFromContext(ctx context.Context) (service.Decision, bool) {
	d, ok := ctx.Value(ctxKeyDecision).(service.Decision)
	return d, ok
}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyToken, token)
}

// TokenFromContext returns the caller's bearer token without the scheme, for
// calls passed through to the provider.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(ctxKeyToken).(string)
	return t
}
