package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/centralrepo/centralrepo/internal/model"
)

const entitlementColumns = `user_id, format_id, created_at, access`

// EntitlementRepo manages per-(user, format) access grants.
type EntitlementRepo struct {
	db DBTX
}

// NewEntitlementRepo creates the entitlement repository.
func NewEntitlementRepo(db DBTX) *EntitlementRepo {
	return &EntitlementRepo{db: db}
}

// Create inserts an entitlement. Duplicates surface as ErrConflict,
// references to missing users or formats as ErrNotFound.
func (r *EntitlementRepo) Create(ctx context.Context, e *model.Entitlement) (*model.Entitlement, error) {
	if !e.Access.Valid() {
		return nil, fmt.Errorf("%w: unknown access level %q", ErrInvalidAccess, e.Access)
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO format_entitlement (user_id, format_id, created_at, access)
		VALUES ($1, $2, now(), $3)
		RETURNING `+entitlementColumns,
		e.UserID, e.FormatID, string(e.Access))
	created, err := scanEntitlement(row)
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

// Get returns the entitlement for the (user, format) key.
func (r *EntitlementRepo) Get(ctx context.Context, userID uuid.UUID, formatID int64) (*model.Entitlement, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entitlementColumns+` FROM format_entitlement WHERE user_id = $1 AND format_id = $2`,
		userID, formatID)
	e, err := scanEntitlement(row)
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

// Delete removes the entitlement for the (user, format) key.
func (r *EntitlementRepo) Delete(ctx context.Context, userID uuid.UUID, formatID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM format_entitlement WHERE user_id = $1 AND format_id = $2`,
		userID, formatID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EntitlementFilter narrows entitlement listings.
type EntitlementFilter struct {
	UserID   *uuid.UUID
	FormatID *int64
	Access   *model.Access
}

// List returns one page of entitlements.
func (r *EntitlementRepo) List(ctx context.Context, filter EntitlementFilter, p Pagination) (*PagedResult[model.Entitlement], error) {
	var conds []string
	var args []any
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.FormatID != nil {
		args = append(args, *filter.FormatID)
		conds = append(conds, fmt.Sprintf("format_id = $%d", len(args)))
	}
	if filter.Access != nil {
		args = append(args, string(*filter.Access))
		conds = append(conds, fmt.Sprintf("access = $%d", len(args)))
	}
	sql := `SELECT ` + entitlementColumns + ` FROM format_entitlement`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return Paginate(ctx, r.db, SelectQuery{SQL: sql, Args: args, OrderBy: "created_at"}, p,
		func(rows pgx.Rows) (model.Entitlement, error) {
			e, err := scanEntitlement(rows)
			if err != nil {
				return model.Entitlement{}, err
			}
			return *e, nil
		})
}

func scanEntitlement(row pgx.Row) (*model.Entitlement, error) {
	e := &model.Entitlement{}
	var access string
	if err := row.Scan(&e.UserID, &e.FormatID, &e.CreatedAt, &access); err != nil {
		return nil, err
	}
	e.Access = model.Access(access)
	return e, nil
}
