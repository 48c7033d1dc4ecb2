package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
)

type accountsRepo struct {
	db dbtx
}

func (r *accountsRepo) GetAccountByDocument(
	ctx context.Context,
	document string,
	fields ...store.Field,
) (domain.Account, error) {
	cols, err := projection(fields)
	if err != nil {
		return domain.Account{}, err
	}

	var (
		a         domain.Account
		areaID    sql.NullInt64
		lastLogin sql.NullTime
		dest      = make([]any, 0, len(cols))
	)
	for _, c := range cols {
		switch c {
		case store.FieldID:
			dest = append(dest, &a.ID)
		case store.FieldDocument:
			dest = append(dest, &a.Document)
		case store.FieldRoleID:
			dest = append(dest, &a.RoleID)
		case store.FieldAreaID:
			dest = append(dest, &areaID)
		case store.FieldActive:
			dest = append(dest, &a.Active)
		case store.FieldDisplayName:
			dest = append(dest, &a.DisplayName)
		case store.FieldLastLogin:
			dest = append(dest, &lastLogin)
		case store.FieldCreatedAt:
			dest = append(dest, &a.CreatedAt)
		case store.FieldUpdatedAt:
			dest = append(dest, &a.UpdatedAt)
		}
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	query := "SELECT " + strings.Join(names, ", ") + " FROM accounts WHERE document = ?"

	if err := r.db.QueryRowContext(ctx, query, document).Scan(dest...); err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.AreaID = mapNullInt64Ptr(areaID)
	a.LastLogin = mapNullTimePtr(lastLogin)
	return a, nil
}

// projection always leads with id and document and drops duplicates.
func projection(fields []store.Field) ([]store.Field, error) {
	if len(fields) == 0 {
		return store.AllFields, nil
	}

	out := []store.Field{store.FieldID, store.FieldDocument}
	seen := map[store.Field]struct{}{
		store.FieldID:       {},
		store.FieldDocument: {},
	}
	for _, f := range fields {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %q", store.ErrUnknownField, f)
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (document, role_id, area_id, active, display_name, last_login)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Document,
		a.RoleID,
		mapOptionalInt64(a.AreaID),
		a.Active,
		a.DisplayName,
		mapOptionalTime(a.LastLogin),
	)
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	return res.LastInsertId()
}

func (r *accountsRepo) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	return expectOneRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET display_name = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		name, id,
	))
}

func (r *accountsRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return expectOneRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET last_login = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		at.UTC(), id,
	))
}

func (r *accountsRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return expectOneRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		active, id,
	))
}
