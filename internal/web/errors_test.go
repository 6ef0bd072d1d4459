package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/centralrepo/centralrepo/internal/limiter"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
	"github.com/centralrepo/centralrepo/internal/search"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "empty query",
			err:        search.ErrEmptyQuery,
			wantStatus: http.StatusBadRequest,
			wantCode:   "EMPTY_QUERY",
		},
		{
			name:       "mixed column types",
			err:        &search.QueryError{Kind: search.KindMixedColumnTypes, Detail: "column x"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "COLUMN_WITH_MIXED_TYPES",
		},
		{
			name:       "invalid column",
			err:        &search.QueryError{Kind: search.KindInvalidColumn, Detail: "column y"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_COLUMN",
		},
		{
			name:       "cast error",
			err:        search.ErrCast,
			wantStatus: http.StatusBadRequest,
			wantCode:   "CAST_ERROR",
		},
		{
			name:       "batch validation",
			err:        &model.BatchError{Index: 3, Column: "amount", Reason: "expected a number"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BATCH_VALIDATION",
		},
		{
			name:       "invalid regex",
			err:        model.ErrInvalidRegex,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REGEX",
		},
		{
			name:       "invalid schema",
			err:        model.ErrInvalidSchema,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_SCHEMA",
		},
		{
			name:       "invalid access level",
			err:        repository.ErrInvalidAccess,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ACCESS",
		},
		{
			name:       "no write access",
			err:        errNoWriteAccess,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "not found",
			err:        repository.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "conflict",
			err:        repository.ErrConflict,
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "stream grant limit",
			err:        &limiter.GrantLimitError{Key: "alice", Held: 2},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "STREAM_LIMIT",
		},
		{
			name:       "unclassified error",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/record/search", nil)
			w := httptest.NewRecorder()
			respondError(w, r, tc.err)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("body is not the error envelope: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tc.wantCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRespondError_InternalHidesDetail(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/format", nil)
	w := httptest.NewRecorder()
	respondError(w, r, errors.New("pq: password authentication failed"))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not the error envelope: %v", err)
	}
	if resp.Error != "internal server error" {
		t.Errorf("internal detail leaked to the client: %q", resp.Error)
	}
}

func TestRespondError_GrantLimitSetsRetryAfter(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/record/search/csv", nil)
	w := httptest.NewRecorder()
	respondError(w, r, &limiter.GrantLimitError{Key: "alice", Held: 2})

	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
}
