// Package repository is the PostgreSQL data access layer. All queries
// are plain SQL through pgx with $n placeholders; no ORM. Repositories
// accept a DBTX so they work against both the shared pool and an open
// transaction.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Data access errors shared by all repositories.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("already exists")
	// ErrInvalidAccess is returned when an unknown entitlement access
	// level is supplied.
	ErrInvalidAccess = errors.New("invalid access level")
)

// DBTX is the query interface satisfied by both *pgxpool.Pool and
// pgx.Tx. CopyFrom is included for the bulk ingestion path.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// classify maps low-level postgres errors to the repository error
// taxonomy. Unrecognized errors pass through for the web layer to log
// and surface opaquely.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrConflict
		case "23503": // foreign_key_violation
			return ErrNotFound
		}
	}
	return err
}
