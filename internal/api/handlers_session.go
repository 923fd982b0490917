// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/session"
)

// ListSessions returns every session id.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	keys, err := h.sessions.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
}

// CreateSession stores the body, or an empty document, as a new session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := readDocument(w, r, false)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	id, err := h.sessions.Create(r.Context(), body)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

// GetSession returns the session document with its version as ETag.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	doc, version, err := h.sessions.GetWithVersion(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("ETag", quoteETag(version))
	writeJSON(w, http.StatusOK, doc)
}

// ReplaceSession merges the body into the session. With If-Match, a stale
// version fails with 409 and nothing is written.
func (h *Handler) ReplaceSession(w http.ResponseWriter, r *http.Request) {
	body, err := readDocument(w, r, true)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "session_id")
	ctx := logging.ContextWithSessionID(r.Context(), id)

	doc, version, err := h.sessions.Replace(ctx, id, body, parseIfMatch(r.Header.Get("If-Match")))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("ETag", quoteETag(version))
	writeJSON(w, http.StatusOK, doc)
}

// DeleteSession removes one session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteAllSessions removes every session. Nothing to delete is not an
// error.
func (h *Handler) DeleteAllSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.sessions.DeleteAll(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	message := session.MsgAllDeleted
	if n == 0 {
		message = session.MsgNoSessions
	}
	logging.Ctx(r.Context()).Info().Int64("deleted", n).Msg("Sessions deleted")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"number_of_deleted_sessions": n,
		"message":                    message,
	})
}

func quoteETag(version string) string {
	return `"` + version + `"`
}

// parseIfMatch reduces an If-Match header to a bare version. "*" and an
// absent header both mean unconditional.
func parseIfMatch(header string) string {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return ""
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
