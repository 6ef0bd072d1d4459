package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPaginationValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Pagination
		ok   bool
	}{
		{"first page default size", Pagination{Page: 0, PageSize: 1000}, true},
		{"mid page", Pagination{Page: 7, PageSize: 50}, true},
		{"size at max", Pagination{Page: 0, PageSize: 1000}, true},
		{"negative page", Pagination{Page: -1, PageSize: 10}, false},
		{"zero size", Pagination{Page: 0, PageSize: 0}, false},
		{"size above max", Pagination{Page: 0, PageSize: 1001}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate(1000)
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		items    int64
		pageSize int
		want     int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{5, 0, 0},
	}

	for _, tc := range tests {
		if got := pageCount(tc.items, tc.pageSize); got != tc.want {
			t.Errorf("pageCount(%d, %d) = %d, want %d", tc.items, tc.pageSize, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, ErrNotFound},
		{"other pg error", &pgconn.PgError{Code: "42601"}, nil},
		{"plain error", errors.New("boom"), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Errorf("classify() = %v, want %v", got, tc.want)
				}
				return
			}
			// Unclassified errors pass through unchanged.
			if errors.Is(got, ErrNotFound) || errors.Is(got, ErrConflict) {
				t.Errorf("classify() = %v, should not be classified", got)
			}
		})
	}
}
