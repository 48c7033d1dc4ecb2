package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount(t *testing.T, s store.Store, a domain.Account) domain.Account {
	t.Helper()
	id, err := s.Accounts().CreateAccount(context.Background(), a)
	require.NoError(t, err)
	a.ID = id
	return a
}

// recordingStore wraps a real store, records every write and can fail them.
type recordingStore struct {
	store.Store

	mu        sync.Mutex
	writes    []string
	failName  error
	failLogin error
}

func (s *recordingStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, op)
}

func (s *recordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

func (s *recordingStore) Accounts() store.Accounts {
	return &recordingAccounts{Accounts: s.Store.Accounts(), s: s}
}

func (s *recordingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&recordingTx{baseTx: tx, s: s})
	})
}

// baseTx lets recordingTx embed a store.Tx without a field named Tx hiding
// the promoted Tx method.
type baseTx = store.Tx

type recordingTx struct {
	baseTx
	s *recordingStore
}

func (t *recordingTx) Accounts() store.Accounts {
	return &recordingAccounts{Accounts: t.baseTx.Accounts(), s: t.s}
}

var _ store.Tx = (*recordingTx)(nil)

type recordingAccounts struct {
	store.Accounts
	s *recordingStore
}

func (a *recordingAccounts) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	a.s.record("display_name")
	if a.s.failName != nil {
		return a.s.failName
	}
	return a.Accounts.UpdateDisplayName(ctx, id, name)
}

func (a *recordingAccounts) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	a.s.record("last_login")
	if a.s.failLogin != nil {
		return a.s.failLogin
	}
	return a.Accounts.UpdateLastLogin(ctx, id, at)
}

// recordingReporter keeps events for assertions.
type recordingReporter struct {
	mu         sync.Mutex
	rejected   []string
	decisions  []string
	reconciles []string
}

func (r *recordingReporter) TokenRejected(_ context.Context, reason string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
}

func (r *recordingReporter) Decision(_ context.Context, kind string, _ int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, kind)
}

func (r *recordingReporter) Reconciled(_ context.Context, _ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciles = append(r.reconciles, outcome)
}

func (r *recordingReporter) UpstreamCall(context.Context, string, string, time.Duration) {}

// stepClock advances a second on every call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
