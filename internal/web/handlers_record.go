package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/centralrepo/centralrepo/internal/export"
	"github.com/centralrepo/centralrepo/internal/logging"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
	"github.com/centralrepo/centralrepo/internal/search"
)

// uploadRequest is one ingestion batch: the target format and the
// candidate documents.
type uploadRequest struct {
	FormatID int64            `json:"formatId"`
	Records  []model.Document `json:"records"`
}

// handleUploadRecords validates and persists one batch. Every upload
// attempt leaves an upload session row: a failed validation records an
// ERROR outcome with zero persisted records, a clean batch records
// SUCCESS and bulk-inserts the documents.
func (s *Server) handleUploadRecords(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body: "+err.Error())
		return
	}

	format, err := s.formats.FindWritable(r.Context(), user, req.FormatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, r, errNoWriteAccess)
			return
		}
		respondError(w, r, err)
		return
	}

	session := &model.UploadSession{
		FormatID:    format.ID,
		UserID:      user.ID,
		RecordCount: len(req.Records),
		Outcome:     model.OutcomeSuccess,
	}

	if verr := model.ValidateBatch(format, req.Records); verr != nil {
		session.Outcome = model.OutcomeError
		session.RecordCount = 0
		session.Detail = verr.Error()
		if _, err := s.sessions.Create(r.Context(), session); err != nil {
			respondError(w, r, err)
			return
		}
		respondError(w, r, verr)
		return
	}

	session, err = s.sessions.Create(r.Context(), session)
	if err != nil {
		respondError(w, r, err)
		return
	}

	inserted, err := s.records.BulkInsert(r.Context(), session.ID, format.ID, req.Records)
	if err != nil {
		if markErr := s.sessions.MarkFailed(r.Context(), session.ID, "bulk insert failed"); markErr != nil {
			logging.FromContext(r.Context()).Error("marking session failed", "session_id", session.ID, "error", markErr)
		}
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(),
		"session_id", session.ID,
		"format_id", format.ID,
	).Info("batch ingested", "records", inserted)

	writeJSON(w, r, http.StatusCreated, session)
}

// prepareSearch decodes, validates, and compiles the search body
// against the formats the caller may read. Numbers are decoded as
// json.Number so out-of-range operands fail the cast check instead of
// silently losing precision.
func (s *Server) prepareSearch(r *http.Request) (*search.PreparedQuery, *search.Condition, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var q search.Query
	if err := dec.Decode(&q); err != nil {
		return nil, nil, &search.QueryError{Kind: search.KindInvalidUsage, Detail: "malformed query body: " + err.Error()}
	}
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}

	user := UserFrom(r.Context())
	formats, err := s.formats.ResolveReadable(r.Context(), user, q.FormatIDs())
	if err != nil {
		return nil, nil, err
	}

	prepared, err := search.Prepare(&q, formats)
	if err != nil {
		return nil, nil, err
	}

	cond, err := prepared.Compile(1)
	if err != nil {
		return nil, nil, err
	}
	return prepared, cond, nil
}

// handleSearchRecords runs a paginated search. With ?debug=true the
// validated query is echoed back instead of executed.
func (s *Server) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	prepared, cond, err := s.prepareSearch(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("debug") == "true" {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"query":   prepared.Query(),
			"formats": prepared.FormatIDs(),
		})
		return
	}

	p, err := s.parsePagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	result, err := s.records.SearchPage(r.Context(), cond, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setPageHeaders(w, result)
	if result.Items == nil {
		result.Items = []model.Record{}
	}
	writeJSON(w, r, http.StatusOK, result.Items)
}

// recordSource binds a compiled condition to the record store for the
// export pipeline.
type recordSource struct {
	records *repository.RecordRepo
	cond    *search.Condition
}

func (src *recordSource) Count(ctx context.Context) (int64, error) {
	return src.records.Count(ctx, src.cond)
}

func (src *recordSource) StreamRange(ctx context.Context, limit, offset int64, fn func(model.Record) error) error {
	return src.records.StreamRange(ctx, src.cond, limit, offset, fn)
}

// handleExportRecords streams the search result as CSV. Non-superusers
// hold a concurrency grant for the lifetime of the stream; exceeding
// the per-user cap yields 429 before any bytes are written.
func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	prepared, cond, err := s.prepareSearch(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if !user.IsSuperuser {
		grant, err := s.grants.Acquire(user.ID.String())
		if err != nil {
			respondError(w, r, err)
			return
		}
		defer grant.Release()
	}

	columns := export.ColumnUnion(prepared.Formats)
	src := &recordSource{records: s.records, cond: cond}
	stream := export.Stream(r.Context(), src, columns, export.Options{
		Readers:      s.cfg.Export.StreamWorkers,
		Transformers: s.cfg.Export.TransformWorkers,
		QueueDepth:   s.cfg.Export.QueueDepth,
	})
	defer stream.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="records.csv"`)

	// Status and headers are committed on the first write; failures
	// after that can only truncate the stream.
	if _, err := io.Copy(w, stream); err != nil {
		logging.FromContext(r.Context()).Error("csv export aborted", "error", err)
	}
}
