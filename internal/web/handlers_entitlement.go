package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/centralrepo/centralrepo/internal/logging"
	"github.com/centralrepo/centralrepo/internal/model"
	"github.com/centralrepo/centralrepo/internal/repository"
)

func (s *Server) handleCreateEntitlement(w http.ResponseWriter, r *http.Request) {
	var ent model.Entitlement
	if err := json.NewDecoder(r.Body).Decode(&ent); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed request body: "+err.Error())
		return
	}

	created, err := s.entitlements.Create(r.Context(), &ent)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("entitlement created",
		"user_id", created.UserID,
		"format_id", created.FormatID,
		"access", created.Access,
	)
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleListEntitlements(w http.ResponseWriter, r *http.Request) {
	p, err := s.parsePagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	q := r.URL.Query()
	var filter repository.EntitlementFilter
	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", badParam("userId", raw).Error())
			return
		}
		filter.UserID = &id
	}
	if raw := q.Get("formatId"); raw != "" {
		id, ok := parseInt64(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", badParam("formatId", raw).Error())
			return
		}
		filter.FormatID = &id
	}
	if raw := q.Get("access"); raw != "" {
		access := model.Access(raw)
		if !access.Valid() {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", badParam("access", raw).Error())
			return
		}
		filter.Access = &access
	}

	result, err := s.entitlements.List(r.Context(), filter, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setPageHeaders(w, result)
	if result.Items == nil {
		result.Items = []model.Entitlement{}
	}
	writeJSON(w, r, http.StatusOK, result.Items)
}

func (s *Server) handleDeleteEntitlement(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "user id must be a UUID")
		return
	}
	formatID, ok := int64Param(r, "formatID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "format id must be an integer")
		return
	}

	if err := s.entitlements.Delete(r.Context(), userID, formatID); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("entitlement deleted", "user_id", userID, "format_id", formatID)
	w.WriteHeader(http.StatusNoContent)
}
