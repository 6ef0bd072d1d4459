package repository

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"

	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/search"
)

// formatColumns is the shared column list for every format SELECT.
const formatColumns = `id, name, description, created_at, schema, retention_minutes`

// formatCacheSize bounds the schema registry cache. Format rows are
// tiny; this comfortably covers any realistic deployment.
const formatCacheSize = 512

// FormatRepo reads and writes format definitions and serves as the
// schema registry view. Lookups by id go through an LRU cache because
// every search and every export resolves format schemas.
type FormatRepo struct {
	db    DBTX
	cache *lru.Cache[int64, model.Format]
}

// NewFormatRepo creates the format repository with its registry cache.
func NewFormatRepo(db DBTX) (*FormatRepo, error) {
	cache, err := lru.New[int64, model.Format](formatCacheSize)
	if err != nil {
		return nil, fmt.Errorf("format cache: %w", err)
	}
	return &FormatRepo{db: db, cache: cache}, nil
}

// Create validates the schema invariants (unique column names, regex
// only on string columns, compilable patterns) and inserts the format.
func (r *FormatRepo) Create(ctx context.Context, f *model.Format) (*model.Format, error) {
	if err := f.Schema.Validate(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO format (name, description, created_at, schema, retention_minutes)
		VALUES ($1, $2, now(), $3, $4)
		RETURNING `+formatColumns,
		f.Name, f.Description, f.Schema, f.RetentionMinutes)
	created, err := scanFormat(row)
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

// GetByID returns one format, from cache when possible.
func (r *FormatRepo) GetByID(ctx context.Context, id int64) (*model.Format, error) {
	if f, ok := r.cache.Get(id); ok {
		return &f, nil
	}
	row := r.db.QueryRow(ctx, `SELECT `+formatColumns+` FROM format WHERE id = $1`, id)
	f, err := scanFormat(row)
	if err != nil {
		return nil, classify(err)
	}
	r.cache.Add(id, *f)
	return f, nil
}

// Delete removes a format and, via cascade, its sessions and records.
func (r *FormatRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM format WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.cache.Remove(id)
	return nil
}

// FormatFilter narrows format listings. Nil fields are not applied.
type FormatFilter struct {
	Name      *string // partial, case-insensitive
	NameExact *string
}

// List returns one page of formats.
func (r *FormatRepo) List(ctx context.Context, filter FormatFilter, p Pagination) (*PagedResult[model.Format], error) {
	var conds []string
	var args []any
	if filter.Name != nil {
		args = append(args, "%"+*filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.NameExact != nil {
		args = append(args, *filter.NameExact)
		conds = append(conds, fmt.Sprintf("name = $%d", len(args)))
	}
	sql := `SELECT ` + formatColumns + ` FROM format`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return Paginate(ctx, r.db, SelectQuery{SQL: sql, Args: args, OrderBy: "id"}, p,
		func(rows pgx.Rows) (model.Format, error) {
			f, err := scanFormat(rows)
			if err != nil {
				return model.Format{}, err
			}
			return *f, nil
		})
}

// ResolveReadable implements the entitlement resolver for searches:
// superusers see every format; regular users only those they hold a
// read-class entitlement on. ids narrows the result further; a
// non-nil empty list is rejected as an explicit "search nothing".
// Exactly one backing-store read.
func (r *FormatRepo) ResolveReadable(ctx context.Context, user *model.User, ids []int64) ([]model.Format, error) {
	if ids != nil && len(ids) == 0 {
		return nil, search.ErrEmptyQuery
	}

	var sql string
	var args []any
	if user.IsSuperuser {
		sql = `SELECT ` + formatColumns + ` FROM format`
		if ids != nil {
			sql += ` WHERE id = ANY($1)`
			args = append(args, ids)
		}
		sql += ` ORDER BY id`
	} else {
		sql = `SELECT f.id, f.name, f.description, f.created_at, f.schema, f.retention_minutes
			FROM format f
			JOIN format_entitlement fe ON fe.format_id = f.id
			WHERE fe.user_id = $1 AND fe.access = ANY($2)`
		args = append(args, user.ID, []string{string(model.AccessReadOnly), string(model.AccessReadWrite)})
		if ids != nil {
			sql += ` AND f.id = ANY($3)`
			args = append(args, ids)
		}
		sql += ` ORDER BY f.id`
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve readable formats: %w", err)
	}
	defer rows.Close()

	var formats []model.Format
	for rows.Next() {
		f, err := scanFormat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan format: %w", err)
		}
		formats = append(formats, *f)
	}
	return formats, rows.Err()
}

// FindWritable returns the format if the user may upload to it:
// superusers always; others only with a write-class entitlement.
func (r *FormatRepo) FindWritable(ctx context.Context, user *model.User, formatID int64) (*model.Format, error) {
	if user.IsSuperuser {
		return r.GetByID(ctx, formatID)
	}
	row := r.db.QueryRow(ctx, `
		SELECT f.id, f.name, f.description, f.created_at, f.schema, f.retention_minutes
		FROM format f
		JOIN format_entitlement fe ON fe.format_id = f.id
		WHERE f.id = $1 AND fe.user_id = $2 AND fe.access = ANY($3)`,
		formatID, user.ID, []string{string(model.AccessWriteOnly), string(model.AccessReadWrite)})
	f, err := scanFormat(row)
	if err != nil {
		return nil, classify(err)
	}
	return f, nil
}

// scanFormat reads one format row from either pgx.Row or pgx.Rows.
func scanFormat(row pgx.Row) (*model.Format, error) {
	f := &model.Format{}
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.Schema, &f.RetentionMinutes)
	if err != nil {
		return nil, err
	}
	return f, nil
}
