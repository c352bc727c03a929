// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API for generating, theming and
// compiling MJML emails.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"mailsmith/internal/generator"
	"mailsmith/internal/jobs"
	"mailsmith/internal/layout"
	"mailsmith/internal/mailer"
	"mailsmith/internal/middleware"
	"mailsmith/internal/models"
	"mailsmith/internal/theme"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 2 << 20

// Pipeline is the generation capability the API exposes.
// *generator.Generator satisfies it.
type Pipeline interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
	Restyle(doc string, brand map[string]any, skinID string) (string, theme.SkinPack)
}

// JobRunner starts background work. *jobs.Runner satisfies it.
type JobRunner interface {
	Start(ctx context.Context, fn jobs.Func) (*jobs.Job, error)
}

// JobReader looks up job records. *jobs.Store satisfies it.
type JobReader interface {
	Get(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
}

// History persists finished generations. *store.EmailStore satisfies it.
type History interface {
	Create(ctx context.Context, e *models.GeneratedEmail) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GeneratedEmail, error)
	ListRecent(ctx context.Context, limit int) ([]models.GeneratedEmail, error)
}

// Mailer delivers preview emails. *mailer.Postmark satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// API groups the HTTP handlers and their dependencies. Runner, Jobs,
// History and the mailer are optional; endpoints needing a missing one
// answer 503.
type API struct {
	pipeline Pipeline
	runner   JobRunner
	jobs     JobReader
	history  History
	mailer   Mailer
}

// NewAPI creates the API handler set.
func NewAPI(pipeline Pipeline, runner JobRunner, jobStore JobReader, history History) *API {
	return &API{
		pipeline: pipeline,
		runner:   runner,
		jobs:     jobStore,
		history:  history,
	}
}

// WithMailer enables preview delivery and returns a.
func (a *API) WithMailer(m Mailer) *API {
	a.mailer = m
	return a
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded JSON body into v. The returned message is
// safe to show to clients.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) string {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return "request body too large"
		case errors.Is(err, io.EOF):
			return "request body is empty"
		default:
			return "invalid JSON body"
		}
	}
	return ""
}

// generationFailure maps a pipeline error to a status and a client-safe
// message. Library and provider details stay in the logs.
func generationFailure(err error) (int, string) {
	var upstream *generator.UpstreamError
	switch {
	case errors.Is(err, layout.ErrConfiguration):
		return http.StatusInternalServerError, "generation failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "generation timed out"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "upstream model error"
	default:
		return http.StatusInternalServerError, "generation failed"
	}
}

// logFailure records err with the request's correlation id.
func logFailure(r *http.Request, msg string, err error) {
	slog.Error(msg,
		"request_id", middleware.RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
}
