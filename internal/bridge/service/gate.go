package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/pkg/cryptox"
	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
)

// DecisionKind is the outcome of a successful gate call.
type DecisionKind int

const (
	DecisionAnonymous DecisionKind = iota
	DecisionAuthenticated
	DecisionSuperadmin
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAuthenticated:
		return "authenticated"
	case DecisionSuperadmin:
		return "superadmin"
	default:
		return "anonymous"
	}
}

// Identity is the caller as the rest of the request sees it: token claims
// merged with the authoritative local fields.
type Identity struct {
	AccountID   int64
	Document    string
	RoleID      int
	AreaID      *int64
	DisplayName string
	Claims      *jwtx.Claims // nil for the superadmin
}

// Decision is the gate's answer. Identity is nil for DecisionAnonymous.
type Decision struct {
	Kind     DecisionKind
	Identity *Identity
}

// superadminIdentity is fixed; nothing about it comes from the request.
func superadminIdentity() *Identity {
	return &Identity{
		Document:    domain.SuperadminDocument,
		RoleID:      domain.RoleSuperadmin,
		DisplayName: domain.SuperadminDocument,
	}
}

// Gate is the single authorization decision point, run once per request
// before any handler logic.
type Gate struct {
	Verifier jwtx.Verifier
	Store    store.Store

	// SuperadminSecret is the service-to-service bypass credential. Empty
	// disables the bypass.
	SuperadminSecret string

	Reporter events.Reporter
}

// ExtractToken accepts the raw token or the "Bearer <token>" form.
func ExtractToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 6 && strings.EqualFold(header[:6], "bearer") &&
		(len(header) == 6 || header[6] == ' ') {
		return strings.TrimSpace(header[6:])
	}
	return header
}

// Authorize turns an Authorization header into a Decision. allowed restricts
// the caller's role; nil allows any authenticated caller. When required is
// false a missing credential yields an anonymous decision instead of an error.
func (g *Gate) Authorize(ctx context.Context, header string, allowed domain.RoleSet, required bool) (Decision, error) {
	reporter := events.OrNop(g.Reporter)

	token := ExtractToken(header)
	if token == "" {
		if required {
			return Decision{}, g.deny(ctx, unauthenticated("missing bearer token"))
		}
		reporter.Decision(ctx, DecisionAnonymous.String(), 0, "")
		return Decision{Kind: DecisionAnonymous}, nil
	}

	if cryptox.EqualSecret(token, g.SuperadminSecret) {
		id := superadminIdentity()
		reporter.Decision(ctx, DecisionSuperadmin.String(), id.RoleID, "")
		return Decision{Kind: DecisionSuperadmin, Identity: id}, nil
	}

	claims, err := g.Verifier.Verify(token)
	if err != nil {
		reporter.TokenRejected(ctx, jwtx.KindOf(err).String(), err)
		return Decision{}, g.deny(ctx, forbidden("invalid token", err))
	}

	acct, err := g.Store.Accounts().GetAccountByDocument(ctx, claims.Document,
		store.FieldRoleID,
		store.FieldAreaID,
		store.FieldActive,
		store.FieldDisplayName,
	)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Decision{}, g.deny(ctx, forbidden(ErrAccountNotFound.Error(),
				&ReconcileError{Kind: KindAccountNotFound, Document: claims.Document}))
		}
		return Decision{}, fmt.Errorf("gate: load account: %w", err)
	}
	if !acct.Active {
		return Decision{}, g.deny(ctx, forbidden(ErrAccountInactive.Error(),
			&ReconcileError{Kind: KindAccountInactive, Document: claims.Document}))
	}

	id := &Identity{
		AccountID:   acct.ID,
		Document:    acct.Document,
		RoleID:      acct.RoleID,
		AreaID:      acct.AreaID,
		DisplayName: acct.DisplayName,
		Claims:      &claims,
	}
	if id.AreaID == nil {
		id.AreaID = claims.AreaID
	}

	if allowed != nil && !allowed.Contains(id.RoleID) {
		return Decision{}, g.deny(ctx, forbidden("role not permitted", nil))
	}

	reporter.Decision(ctx, DecisionAuthenticated.String(), id.RoleID, "")
	return Decision{Kind: DecisionAuthenticated, Identity: id}, nil
}

func (g *Gate) deny(ctx context.Context, err *GateError) error {
	events.OrNop(g.Reporter).Decision(ctx, "denied", 0, err.Reason)
	return err
}
