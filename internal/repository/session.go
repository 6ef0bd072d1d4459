package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/search"
)

const sessionColumns = `id, created_at, record_count, format_id, user_id, outcome, detail`

// SessionRepo manages upload sessions: the audit rows grouping each
// ingestion batch with its validation outcome. Deleting a session
// cascades to its records.
type SessionRepo struct {
	db DBTX
}

// NewSessionRepo creates the upload session repository.
func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a session row recording one upload attempt.
func (r *SessionRepo) Create(ctx context.Context, s *model.UploadSession) (*model.UploadSession, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO upload_session (created_at, record_count, format_id, user_id, outcome, detail)
		VALUES (now(), $1, $2, $3, $4, $5)
		RETURNING `+sessionColumns,
		s.RecordCount, s.FormatID, s.UserID, string(s.Outcome), s.Detail)
	created, err := scanSession(row)
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

// MarkFailed downgrades a session to an errored outcome. Used when the
// bulk insert fails after the session row was written.
func (r *SessionRepo) MarkFailed(ctx context.Context, id int64, detail string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE upload_session SET outcome = $1, detail = $2 WHERE id = $3`,
		string(model.OutcomeError), detail, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns one session.
func (r *SessionRepo) GetByID(ctx context.Context, id int64) (*model.UploadSession, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM upload_session WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// Delete removes a session and cascades to its records. This is the
// only path that deletes records.
func (r *SessionRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM upload_session WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of sessions matching the filter.
func (r *SessionRepo) List(ctx context.Context, filter *search.SessionFilter, p Pagination) (*PagedResult[model.UploadSession], error) {
	var conds []string
	var args []any
	if filter != nil {
		add := func(cond string, v any) {
			args = append(args, v)
			conds = append(conds, fmt.Sprintf(cond, len(args)))
		}
		if filter.ID != nil {
			add("id = $%d", *filter.ID)
		}
		if filter.FormatID != nil {
			add("format_id = $%d", *filter.FormatID)
		}
		if filter.UserID != nil {
			add("user_id = $%d", *filter.UserID)
		}
		if filter.Outcome != nil {
			add("outcome = $%d", string(*filter.Outcome))
		}
		if filter.CreatedAfter != nil {
			add("created_at >= $%d", *filter.CreatedAfter)
		}
		if filter.CreatedBefore != nil {
			add("created_at <= $%d", *filter.CreatedBefore)
		}
	}
	sql := `SELECT ` + sessionColumns + ` FROM upload_session`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	return Paginate(ctx, r.db, SelectQuery{SQL: sql, Args: args, OrderBy: "id"}, p,
		func(rows pgx.Rows) (model.UploadSession, error) {
			s, err := scanSession(rows)
			if err != nil {
				return model.UploadSession{}, err
			}
			return *s, nil
		})
}

// PruneExpired deletes sessions older than their format's retention
// period, cascading to records. Formats with zero retention keep data
// forever. Returns the number of sessions removed.
func (r *SessionRepo) PruneExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM upload_session us
		USING format f
		WHERE us.format_id = f.id
		  AND f.retention_minutes > 0
		  AND us.created_at < now() - (f.retention_minutes * interval '1 minute')`)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartPruner runs PruneExpired on a fixed interval until ctx is
// cancelled. Each run gets its own timeout so a slow delete cannot
// wedge the loop.
func (r *SessionRepo) StartPruner(ctx context.Context, interval, timeout time.Duration) {
	if interval <= 0 {
		slog.Warn("retention pruner disabled; storage will grow unbounded")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("retention pruner started", "interval", interval, "timeout", timeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("retention pruner stopped")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			pruned, err := r.PruneExpired(runCtx)
			cancel()
			if err != nil {
				slog.Error("retention prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				slog.Info("retention prune completed", "sessions_removed", pruned)
			}
		}
	}
}

func scanSession(row pgx.Row) (*model.UploadSession, error) {
	s := &model.UploadSession{}
	var outcome string
	err := row.Scan(&s.ID, &s.CreatedAt, &s.RecordCount, &s.FormatID, &s.UserID, &outcome, &s.Detail)
	if err != nil {
		return nil, err
	}
	s.Outcome = model.Outcome(outcome)
	return s, nil
}
