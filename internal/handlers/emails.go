// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mailsmith/internal/models"
)

// ListEmails returns recent generations, newest first, without documents.
// ?limit=N is capped by the store.
func (a *API) ListEmails(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	emails, err := a.history.ListRecent(r.Context(), limit)
	if err != nil {
		logFailure(r, "list emails failed", err)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	if emails == nil {
		emails = []models.GeneratedEmail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
}

// GetEmail returns one stored generation including its MJML.
func (a *API) GetEmail(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	email, err := a.history.FindByID(r.Context(), id)
	if err != nil {
		logFailure(r, "get email failed", err)
		writeError(w, http.StatusInternalServerError, "could not load email")
		return
	}
	if email == nil {
		writeError(w, http.StatusNotFound, "email not found")
		return
	}
	writeJSON(w, http.StatusOK, email)
}
