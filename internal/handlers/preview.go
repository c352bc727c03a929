// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mailsmith/internal/mailer"
	"mailsmith/internal/mjml"
)

type previewRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
}

// SendPreview compiles a stored generation and mails it to a test inbox.
func (a *API) SendPreview(w http.ResponseWriter, r *http.Request) {
	if a.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "preview delivery is not configured")
		return
	}
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	var req previewRequest
	if msg := decodeJSON(w, r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validatePreview(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
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

	html, err := mjml.ToHTML(r.Context(), email.MJML, true)
	if err != nil {
		logFailure(r, "preview compile failed", err)
		writeError(w, http.StatusUnprocessableEntity, compileMessage(err))
		return
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = fmt.Sprintf("[Preview] %s %s", email.EmailType, email.LayoutID)
	}

	messageID, err := a.mailer.Send(r.Context(), mailer.Message{
		To:      req.To,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		if errors.Is(err, mailer.ErrInvalidMessage) {
			writeError(w, http.StatusBadRequest, "invalid preview message")
			return
		}
		logFailure(r, "preview delivery failed", err)
		writeError(w, http.StatusBadGateway, "preview delivery failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":        email.ID.String(),
		"messageId": messageID,
		"to":        req.To,
		"subject":   subject,
	})
}
