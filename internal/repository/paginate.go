package repository

// paginate.go is the shared page-and-count engine used by every
// listing endpoint and by the non-streaming search path. One generic
// function replaces per-entity pagination: each caller supplies the
// filtered SELECT, the ORDER BY whitelist result, and a row scanner.
//
// When the caller wants counts, the page query and the COUNT(*) run
// concurrently; the count wraps the filtered statement in a sub-query
// (SELECT COUNT(*) FROM (...) AS sub) instead of counting a rewritten
// statement, which was observed to pick a much slower plan.

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jackc/pgx/v5"
)

// Pagination is the caller's paging request. Page is zero-based.
type Pagination struct {
	Page      int
	PageSize  int
	WantCount bool
}

// Validate checks the paging bounds against the configured maximum.
func (p Pagination) Validate(maxPageSize int) error {
	if p.Page < 0 {
		return fmt.Errorf("page must be >= 0, got %d", p.Page)
	}
	if p.PageSize <= 0 || p.PageSize > maxPageSize {
		return fmt.Errorf("pageSize must be in (0, %d], got %d", maxPageSize, p.PageSize)
	}
	return nil
}

// PagedResult is one fetched page plus the optional totals. PageCount
// and ItemCount are zero when the caller skipped counting.
type PagedResult[T any] struct {
	Items     []T
	PageCount int64
	ItemCount int64
}

// SelectQuery is a filtered, unpaged statement. SQL must be a complete
// SELECT without ORDER BY/LIMIT/OFFSET; OrderBy must come from a
// whitelist, never caller input.
type SelectQuery struct {
	SQL     string
	Args    []any
	OrderBy string
}

// Paginate fetches one page of q, scanning rows with scan. With
// WantCount set, the page and the total count are fetched concurrently
// and joined before returning.
func Paginate[T any](ctx context.Context, db DBTX, q SelectQuery, p Pagination, scan func(pgx.Rows) (T, error)) (*PagedResult[T], error) {
	pageSQL := fmt.Sprintf("%s ORDER BY %s LIMIT $%d OFFSET $%d",
		q.SQL, q.OrderBy, len(q.Args)+1, len(q.Args)+2)
	pageArgs := append(append([]any{}, q.Args...), p.PageSize, p.Page*p.PageSize)

	result := &PagedResult[T]{}

	fetchPage := func(ctx context.Context) error {
		rows, err := db.Query(ctx, pageSQL, pageArgs...)
		if err != nil {
			return fmt.Errorf("page query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			result.Items = append(result.Items, item)
		}
		return rows.Err()
	}

	if !p.WantCount {
		if err := fetchPage(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS sub", q.SQL)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fetchPage(gctx) })
	g.Go(func() error {
		if err := db.QueryRow(gctx, countSQL, q.Args...).Scan(&result.ItemCount); err != nil {
			return fmt.Errorf("count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.PageCount = pageCount(result.ItemCount, p.PageSize)
	return result, nil
}

// pageCount is ceil(items / pageSize).
func pageCount(items int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (items + int64(pageSize) - 1) / int64(pageSize)
}
