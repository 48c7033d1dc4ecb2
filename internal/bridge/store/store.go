package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrUnknownField  = errors.New("store: unknown field")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. The local user data lives with another system, so the
// surface here is deliberately narrow: read an account, stamp two fields.
type Store interface {
	Accounts() Accounts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Field names one column of the account projection.
type Field string

const (
	FieldID          Field = "id"
	FieldDocument    Field = "document"
	FieldRoleID      Field = "role_id"
	FieldAreaID      Field = "area_id"
	FieldActive      Field = "active"
	FieldDisplayName Field = "display_name"
	FieldLastLogin   Field = "last_login"
	FieldCreatedAt   Field = "created_at"
	FieldUpdatedAt   Field = "updated_at"
)

// AllFields is the full projection, used when a caller asks for nothing in
// particular.
var AllFields = []Field{
	FieldID,
	FieldDocument,
	FieldRoleID,
	FieldAreaID,
	FieldActive,
	FieldDisplayName,
	FieldLastLogin,
	FieldCreatedAt,
	FieldUpdatedAt,
}

// Valid reports whether f is a known column.
func (f Field) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

type Accounts interface {
	// GetAccountByDocument returns the account joined on the national id.
	// Only the requested fields are loaded (id and document always are);
	// no fields means all of them.
	GetAccountByDocument(ctx context.Context, document string, fields ...Field) (domain.Account, error)

	// CreateAccount inserts a new account and returns its id. Provisioning
	// is not the bridge's job; this exists for seeding and tests.
	CreateAccount(ctx context.Context, a domain.Account) (int64, error)

	// UpdateDisplayName sets display_name and bumps updated_at.
	UpdateDisplayName(ctx context.Context, id int64, name string) error

	// UpdateLastLogin sets last_login and bumps updated_at.
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error

	// SetActive flips the active flag (seeding and tests).
	SetActive(ctx context.Context, id int64, active bool) error
}
