package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/centralrepo/centralrepo/internal/logging"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
)

// int64Param parses a numeric chi URL parameter.
func int64Param(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

// formatFilterFromQuery builds the format list filter. An absent or
// empty parameter leaves its field nil so no restriction is applied.
func formatFilterFromQuery(r *http.Request) repository.FormatFilter {
	q := r.URL.Query()
	var filter repository.FormatFilter
	if raw := q.Get("name"); raw != "" {
		filter.Name = &raw
	}
	if raw := q.Get("nameExact"); raw != "" {
		filter.NameExact = &raw
	}
	return filter
}

func (s *Server) handleCreateFormat(w http.ResponseWriter, r *http.Request) {
	var format model.Format
	if err := json.NewDecoder(r.Body).Decode(&format); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body: "+err.Error())
		return
	}

	created, err := s.formats.Create(r.Context(), &format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("format created", "format_id", created.ID, "name", created.Name)
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "formatID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "format id must be an integer")
		return
	}

	format, err := s.formats.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, format)
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	result, err := s.formats.List(r.Context(), formatFilterFromQuery(r), p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setPageHeaders(w, result)
	if result.Items == nil {
		result.Items = []model.Format{}
	}
	writeJSON(w, r, http.StatusOK, result.Items)
}

func (s *Server) handleDeleteFormat(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "formatID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "format id must be an integer")
		return
	}

	if err := s.formats.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("format deleted", "format_id", id)
	w.WriteHeader(http.StatusNoContent)
}
