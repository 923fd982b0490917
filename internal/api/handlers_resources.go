// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/oteapi-services/internal/models"
)

// CreateResource stores a configuration of category c and, with
// ?session_id=, appends its id to the session. The Authorization header
// becomes the resource token when the body has none.
func (h *Handler) CreateResource(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readDocument(w, r, true)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		sessionID := r.URL.Query().Get("session_id")

		id, err := h.resources.Create(r.Context(), c, body, r.Header.Get("Authorization"), sessionID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{c.IDKey: id})
	}
}

// GetResource runs the strategy's get method.
func (h *Handler) GetResource(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.dispatcher.Get(r.Context(), c, chi.URLParam(r, "id"), r.URL.Query().Get("session_id"))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// InitializeResource runs the strategy's initialize method.
func (h *Handler) InitializeResource(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.dispatcher.Initialize(r.Context(), c, chi.URLParam(r, "id"), r.URL.Query().Get("session_id"))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ResourceInfo returns the stored configuration without running a strategy.
func (h *Handler) ResourceInfo(c models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.resources.Info(r.Context(), c, chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// ExecuteTransformation runs a transformation.
func (h *Handler) ExecuteTransformation(w http.ResponseWriter, r *http.Request) {
	result, err := h.dispatcher.Run(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("session_id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TransformationStatus reports on ?task_id= of a transformation.
func (h *Handler) TransformationStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		respondErr(w, r, models.Invalid("task_id", "task_id is required"))
		return
	}
	status, err := h.dispatcher.Status(r.Context(), chi.URLParam(r, "id"), taskID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// FetchTriples runs a SPARQL query against the triplestore described by the
// body. The query comes from ?sparql_query= or, failing that, the body's
// sparql_query field.
func (h *Handler) FetchTriples(w http.ResponseWriter, r *http.Request) {
	body, err := readDocument(w, r, true)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	query := r.URL.Query().Get(models.FieldSPARQLQuery)
	if query == "" {
		query = body.String(models.FieldSPARQLQuery)
	}
	result, err := h.dispatcher.FetchTriples(r.Context(), body, query)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
