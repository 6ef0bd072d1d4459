package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/centralrepo/centralrepo/internal/logging"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/search"
)

// sessionFilterFromQuery builds the session list filter from query
// parameters. Unknown or malformed values are reported, not ignored.
func sessionFilterFromQuery(r *http.Request) (*search.SessionFilter, error) {
	q := r.URL.Query()
	filter := &search.SessionFilter{}

	if raw := q.Get("formatId"); raw != "" {
		id, ok := parseInt64(raw)
		if !ok {
			return nil, badParam("formatId", raw)
		}
		filter.FormatID = &id
	}
	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, badParam("userId", raw)
		}
		filter.UserID = &id
	}
	if raw := q.Get("outcome"); raw != "" {
		outcome := model.Outcome(raw)
		if outcome != model.OutcomeSuccess && outcome != model.OutcomeError {
			return nil, badParam("outcome", raw)
		}
		filter.Outcome = &outcome
	}
	if raw := q.Get("createdAfter"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, badParam("createdAfter", raw)
		}
		filter.CreatedAfter = &t
	}
	if raw := q.Get("createdBefore"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, badParam("createdBefore", raw)
		}
		filter.CreatedBefore = &t
	}
	return filter, nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	filter, err := sessionFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	// Non-superusers only see their own sessions.
	user := UserFrom(r.Context())
	if !user.IsSuperuser {
		filter.UserID = &user.ID
	}

	result, err := s.sessions.List(r.Context(), filter, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setPageHeaders(w, result)
	if result.Items == nil {
		result.Items = []model.UploadSession{}
	}
	writeJSON(w, r, http.StatusOK, result.Items)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "sessionID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "session id must be an integer")
		return
	}

	session, err := s.sessions.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user := UserFrom(r.Context())
	if !user.IsSuperuser && session.UserID != user.ID {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "not your upload session")
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

// handleDeleteSession removes a session and its records (admin only;
// route-level superuser gate).
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "sessionID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "session id must be an integer")
		return
	}

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
