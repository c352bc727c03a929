// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up the HTTP routes and middleware chains for the
// mailsmith API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mailsmith/internal/handlers"
	"mailsmith/internal/middleware"
)

// Options configures the /api guard.
type Options struct {
	// APIKeyHash is a bcrypt hash; empty disables key checks.
	APIKeyHash string
	// Limiter rate-limits /api; nil disables limiting.
	Limiter *middleware.RateLimiter
	// LimitByAPIKey buckets by API key instead of client IP. Ignored when
	// APIKeyHash is empty.
	LimitByAPIKey bool
	// Timeout bounds each /api request's context; zero means no bound.
	Timeout time.Duration
}

// New creates the chi router with all middleware and routes wired up.
func New(api *handlers.API, opts Options) chi.Router {
	r := chi.NewRouter()

	// Logger runs first so recovered panics carry the request id.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// Keys are only trusted once RequireAPIKey has checked them, so
		// per-key limiting runs after it and per-IP limiting before it.
		byKey := opts.LimitByAPIKey && opts.APIKeyHash != ""
		if opts.Limiter != nil && !byKey {
			r.Use(opts.Limiter.KeyedBy(middleware.KeyByIP))
		}
		r.Use(middleware.RequireAPIKey(opts.APIKeyHash))
		if opts.Limiter != nil && byKey {
			r.Use(opts.Limiter.KeyedBy(middleware.KeyByAPIKey))
		}
		if opts.Timeout > 0 {
			r.Use(chimw.Timeout(opts.Timeout))
		}

		r.Get("/skins", api.Skins)
		r.Post("/generate", api.Generate)
		r.Post("/theme", api.Theme)
		r.Post("/compile", api.Compile)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", api.StartJob)
			r.Get("/{id}", api.GetJob)
		})

		r.Route("/emails", func(r chi.Router) {
			r.Get("/", api.ListEmails)
			r.Get("/{id}", api.GetEmail)
			r.Post("/{id}/preview", api.SendPreview)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, `{"error":"not found"}`)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, `{"error":"method not allowed"}`)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, `{"status":"ok"}`)
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
