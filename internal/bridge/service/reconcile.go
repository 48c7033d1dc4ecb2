package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
)

// Reconciler maps a provider profile onto the local account. It is the only
// writer of an account's display name and last login.
type Reconciler struct {
	Store store.Store

	// RequireVerified rejects profiles the provider has not validated,
	// whatever the local account looks like.
	RequireVerified bool

	// SyncDisplayName keeps the local display name in step with the provider.
	SyncDisplayName bool

	Now      func() time.Time
	Reporter events.Reporter
}

// DisplayName renders the canonical "FAMILY, GIVEN" form.
func DisplayName(p providersdk.Person) string {
	return strings.ToUpper(strings.TrimSpace(p.FamilyName) + ", " + strings.TrimSpace(p.GivenName))
}

// Reconcile checks the profile against the local account and records the
// login. The name sync and the last login stamp share one transaction: both
// are attempted, the first failure is returned and nothing is kept.
func (r *Reconciler) Reconcile(ctx context.Context, profile providersdk.Profile) (domain.Account, error) {
	reporter := events.OrNop(r.Reporter)
	person := profile.Person

	if r.RequireVerified && !person.Verified {
		return domain.Account{}, r.fail(ctx, KindNotVerified, person.Document)
	}

	acct, err := r.Store.Accounts().GetAccountByDocument(ctx, person.Document)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, r.fail(ctx, KindAccountNotFound, person.Document)
		}
		reporter.Reconciled(ctx, person.Document, events.OutcomeError)
		return domain.Account{}, fmt.Errorf("reconcile: load account: %w", err)
	}

	if !acct.Active {
		return domain.Account{}, r.fail(ctx, KindAccountInactive, person.Document)
	}

	name := DisplayName(person)
	now := r.now()
	syncName := r.SyncDisplayName && name != acct.DisplayName

	err = r.Store.WithTx(ctx, func(tx store.Tx) error {
		var first error

		if syncName {
			first = tx.Accounts().UpdateDisplayName(ctx, acct.ID, name)
		}

		if err := tx.Accounts().UpdateLastLogin(ctx, acct.ID, now); err != nil && first == nil {
			first = err
		}

		return first
	})
	if err != nil {
		reporter.Reconciled(ctx, person.Document, events.OutcomeError)
		return domain.Account{}, fmt.Errorf("reconcile: update account: %w", err)
	}

	if syncName {
		acct.DisplayName = name
	}
	acct.LastLogin = &now

	reporter.Reconciled(ctx, person.Document, events.OutcomeOK)
	return acct, nil
}

// LookupAccount finds the account for a document without any policy checks
// and without touching it. Only the requested fields are loaded.
func (r *Reconciler) LookupAccount(ctx context.Context, document string, fields ...store.Field) (domain.Account, error) {
	acct, err := r.Store.Accounts().GetAccountByDocument(ctx, document, fields...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, &ReconcileError{Kind: KindAccountNotFound, Document: document}
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return acct, nil
}

func (r *Reconciler) fail(ctx context.Context, kind ReconcileKind, document string) error {
	events.OrNop(r.Reporter).Reconciled(ctx, document, kind.String())
	return &ReconcileError{Kind: kind, Document: document}
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
