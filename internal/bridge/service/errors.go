package service

import (
	"errors"
)

var (
	// Reconcile failures. All of them are identity problems and surface as 403.
	ErrNotVerified     = errors.New("identity not verified by provider")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account inactive")

	// Gate failures.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// ReconcileKind says which reconcile invariant failed.
type ReconcileKind int

const (
	KindNotVerified ReconcileKind = iota + 1
	KindAccountNotFound
	KindAccountInactive
)

func (k ReconcileKind) String() string {
	switch k {
	case KindNotVerified:
		return "not_verified"
	case KindAccountNotFound:
		return "account_not_found"
	case KindAccountInactive:
		return "account_inactive"
	default:
		return "unknown"
	}
}

func (k ReconcileKind) sentinel() error {
	switch k {
	case KindNotVerified:
		return ErrNotVerified
	case KindAccountNotFound:
		return ErrAccountNotFound
	case KindAccountInactive:
		return ErrAccountInactive
	default:
		return nil
	}
}

// ReconcileError is returned when a profile cannot be mapped onto an active
// local account. Store failures are wrapped plainly, not as ReconcileError.
type ReconcileError struct {
	Kind     ReconcileKind
	Document string
}

func (e *ReconcileError) Error() string {
	if s := e.Kind.sentinel(); s != nil {
		return s.Error()
	}
	return "reconcile failed"
}

func (e *ReconcileError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// GateKind is the client-facing class of a gate failure.
type GateKind int

const (
	GateUnauthenticated GateKind = iota + 1
	GateForbidden
)

// GateError carries a human readable Reason safe to show the client. Err keeps
// the internal cause (verifier or reconcile error) for logs.
type GateError struct {
	Kind   GateKind
	Reason string
	Err    error
}

func (e *GateError) Error() string { return e.Reason }

func (e *GateError) Unwrap() error { return e.Err }

func (e *GateError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Kind == GateUnauthenticated
	case ErrForbidden:
		return e.Kind == GateForbidden
	}
	return false
}

func unauthenticated(reason string) *GateError {
	return &GateError{Kind: GateUnauthenticated, Reason: reason}
}

func forbidden(reason string, cause error) *GateError {
	return &GateError{Kind: GateForbidden, Reason: reason, Err: cause}
}
