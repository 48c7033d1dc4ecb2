package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/idbridge/pkg/slogx"
)

// Log writes events to the request logger. Denials and rejections are warnings,
// the rest debug so a healthy bridge stays quiet.
type Log struct{}

func (Log) TokenRejected(ctx context.Context, reason string, err error) {
	slogx.FromContext(ctx).WarnContext(ctx, "token_rejected",
		"reason", reason,
		"error", err,
	)
}

func (Log) Decision(ctx context.Context, kind string, roleID int, reason string) {
	level := slog.LevelDebug
	if kind == "denied" {
		level = slog.LevelWarn
	}
	slogx.FromContext(ctx).Log(ctx, level, "gate_decision",
		"kind", kind,
		"role_id", roleID,
		"reason", reason,
	)
}

func (Log) Reconciled(ctx context.Context, document string, outcome string) {
	level := slog.LevelInfo
	if outcome != OutcomeOK {
		level = slog.LevelWarn
	}
	slogx.FromContext(ctx).Log(ctx, level, "account_reconciled",
		"document", document,
		"outcome", outcome,
	)
}

func (Log) UpstreamCall(ctx context.Context, op string, outcome string, took time.Duration) {
	level := slog.LevelDebug
	if outcome != OutcomeOK {
		level = slog.LevelWarn
	}
	slogx.FromContext(ctx).Log(ctx, level, "provider_call",
		"op", op,
		"outcome", outcome,
		"duration_ms", took.Milliseconds(),
	)
}
