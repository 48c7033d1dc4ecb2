package events

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus counts events. Documents are never used as labels.
type Prometheus struct {
	tokensRejected   *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	reconciles       *prometheus.CounterVec
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewPrometheus creates and registers the bridge metrics on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		tokensRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idbridge_tokens_rejected_total",
			Help: "Bearer tokens that failed signature verification, by reason",
		}, []string{"reason"}),

		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idbridge_gate_decisions_total",
			Help: "Authorization gate decisions",
		}, []string{"kind", "role_id"}),

		reconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idbridge_reconciles_total",
			Help: "Identity reconciliations, by outcome",
		}, []string{"outcome"}),

		upstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idbridge_provider_calls_total",
			Help: "Round trips to the identity provider",
		}, []string{"op", "outcome"}),

		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idbridge_provider_call_duration_seconds",
			Help:    "Provider round trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (p *Prometheus) TokenRejected(_ context.Context, reason string, _ error) {
	p.tokensRejected.WithLabelValues(reason).Inc()
}

func (p *Prometheus) Decision(_ context.Context, kind string, roleID int, _ string) {
	p.decisions.WithLabelValues(kind, strconv.Itoa(roleID)).Inc()
}

func (p *Prometheus) Reconciled(_ context.Context, _ string, outcome string) {
	p.reconciles.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) UpstreamCall(_ context.Context, op string, outcome string, took time.Duration) {
	p.upstreamCalls.WithLabelValues(op, outcome).Inc()
	p.upstreamDuration.WithLabelValues(op).Observe(took.Seconds())
}
