package web

// errors.go maps domain errors to HTTP responses. Technical details
// are logged server-side; clients get a stable machine-readable code
// plus a short message.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/centralrepo/centralrepo/internal/limiter"
	"github.com/centralrepo/centralrepo/internal/logging"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
	"github.com/centralrepo/centralrepo/internal/search"
)

// ErrorResponse is the JSON envelope for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errNoWriteAccess rejects uploads to formats the caller cannot write.
var errNoWriteAccess = errors.New("no write access to format")

// respondError classifies err and writes the matching status, code,
// and message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var queryErr *search.QueryError
	var batchErr *model.BatchError
	var grantErr *limiter.GrantLimitError

	switch {
	case errors.As(err, &queryErr):
		writeError(w, r, http.StatusBadRequest, string(queryErr.Kind), queryErr.Detail)
	case errors.As(err, &batchErr):
		writeError(w, r, http.StatusBadRequest, "BATCH_VALIDATION", batchErr.Error())
	case errors.Is(err, model.ErrInvalidRegex):
		writeError(w, r, http.StatusBadRequest, "INVALID_REGEX", err.Error())
	case errors.Is(err, model.ErrInvalidSchema):
		writeError(w, r, http.StatusBadRequest, "INVALID_SCHEMA", err.Error())
	case errors.Is(err, repository.ErrInvalidAccess):
		writeError(w, r, http.StatusBadRequest, "INVALID_ACCESS", err.Error())
	case errors.Is(err, errNoWriteAccess):
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, r, http.StatusConflict, "CONFLICT", "resource already exists")
	case errors.As(err, &grantErr):
		w.Header().Set("Retry-After", "5")
		writeError(w, r, http.StatusTooManyRequests, "STREAM_LIMIT", grantErr.Error())
	default:
		logging.FromContext(r.Context()).Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// writeError writes the JSON error envelope with the given status.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if status >= 500 {
		logging.FromContext(r.Context()).Error("request error", "status", status, "code", code, "detail", message)
	} else {
		logging.FromContext(r.Context()).Debug("request rejected", "status", status, "code", code, "detail", message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// writeJSON encodes v with the given status. Encoding failures are
// logged; headers are already gone by then.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode failed", "error", err)
	}
}
