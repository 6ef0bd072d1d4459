package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/search"
)

// RecordRepo reads and bulk-writes the semi-structured record rows.
// Records are immutable: created in bulk by an upload session, removed
// only by cascading session deletion.
type RecordRepo struct {
	db DBTX
}

// NewRecordRepo creates the record repository.
func NewRecordRepo(db DBTX) *RecordRepo {
	return &RecordRepo{db: db}
}

// BulkInsert writes one validated batch through the COPY protocol,
// which beats row-at-a-time inserts by an order of magnitude on large
// uploads. The caller has already validated every document.
func (r *RecordRepo) BulkInsert(ctx context.Context, sessionID, formatID int64, docs []model.Document) (int64, error) {
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"record"},
		[]string{"upload_session_id", "format_id", "data"},
		pgx.CopyFromSlice(len(docs), func(i int) ([]any, error) {
			return []any{sessionID, formatID, docs[i]}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("bulk insert: %w", err)
	}
	return n, nil
}

const recordColumns = `id, upload_session_id, format_id, data`

// SearchPage runs the non-streaming search path: the compiled
// condition paged through the shared paginator, ordered by record id.
func (r *RecordRepo) SearchPage(ctx context.Context, cond *search.Condition, p Pagination) (*PagedResult[model.Record], error) {
	q := SelectQuery{
		SQL:     `SELECT ` + recordColumns + ` FROM record WHERE ` + cond.SQL,
		Args:    cond.Args,
		OrderBy: "id",
	}
	return Paginate(ctx, r.db, q, p, func(rows pgx.Rows) (model.Record, error) {
		rec, err := scanRecord(rows)
		if err != nil {
			return model.Record{}, err
		}
		return *rec, nil
	})
}

// Count returns the number of records matching the compiled condition.
// The export pipeline uses it once to partition reader ranges.
func (r *RecordRepo) Count(ctx context.Context, cond *search.Condition) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM record WHERE `+cond.SQL, cond.Args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// StreamRange streams matching records ordered by id, restricted to
// the [offset, offset+limit) slice of the ordered result. limit <= 0
// streams the whole result. Rows are delivered one at a time through
// fn so the full result set never sits in memory.
func (r *RecordRepo) StreamRange(ctx context.Context, cond *search.Condition, limit, offset int64, fn func(model.Record) error) error {
	sql := `SELECT ` + recordColumns + ` FROM record WHERE ` + cond.SQL + ` ORDER BY id`
	args := cond.Args
	if limit > 0 {
		next := cond.NextArg(1)
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)
		args = append(append([]any{}, args...), limit, offset)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("stream records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		if err := fn(*rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanRecord(row pgx.Row) (*model.Record, error) {
	rec := &model.Record{}
	if err := row.Scan(&rec.ID, &rec.UploadSessionID, &rec.FormatID, &rec.Data); err != nil {
		return nil, err
	}
	return rec, nil
}
