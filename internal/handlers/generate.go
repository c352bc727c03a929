// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mailsmith/internal/generator"
	"mailsmith/internal/jobs"
	"mailsmith/internal/layout"
	"mailsmith/internal/mjml"
	"mailsmith/internal/models"
	"mailsmith/internal/theme"
)

// generateRequest is the body of POST /api/generate and POST /api/jobs.
type generateRequest struct {
	EmailType    string         `json:"emailType"`
	Aesthetic    string         `json:"aesthetic"`
	Skin         string         `json:"skin,omitempty"`
	Brand        map[string]any `json:"brand"`
	ProductCount int            `json:"productCount,omitempty"`
	Seed         string         `json:"seed,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Model        string         `json:"model,omitempty"`
	Compile      bool           `json:"compile,omitempty"`
}

func (g *generateRequest) pipelineRequest() generator.Request {
	return generator.Request{
		EmailType:    g.EmailType,
		Aesthetic:    g.Aesthetic,
		Skin:         g.Skin,
		Brand:        g.Brand,
		ProductCount: g.ProductCount,
		Seed:         g.Seed,
		Instructions: g.Instructions,
		Model:        g.Model,
	}
}

// generateResponse is returned synchronously and stored as a job result.
type generateResponse struct {
	ID           uuid.UUID                    `json:"id"`
	Layout       *layout.Layout               `json:"layout"`
	MJML         string                       `json:"mjml"`
	HTML         string                       `json:"html,omitempty"`
	CompileError string                       `json:"compileError,omitempty"`
	StyleUsed    theme.SkinPack               `json:"styleUsed"`
	Metrics      *generator.GenerationMetrics `json:"metrics"`
}

// Generate runs the pipeline within the request and returns the email.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if msg := decodeJSON(w, r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateGenerate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := a.generate(r.Context(), &req)
	if err != nil {
		logFailure(r, "generate failed", err)
		status, msg := generationFailure(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartJob queues a generation and returns its job id immediately.
func (a *API) StartJob(w http.ResponseWriter, r *http.Request) {
	if a.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "async jobs are not configured")
		return
	}

	var req generateRequest
	if msg := decodeJSON(w, r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateGenerate(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	job, err := a.runner.Start(r.Context(), func(ctx context.Context) (any, error) {
		resp, err := a.generate(ctx, &req)
		if err != nil {
			slog.Error("job generate failed", "error", err)
			_, msg := generationFailure(err)
			return nil, errors.New(msg)
		}
		return resp, nil
	})
	if err != nil {
		logFailure(r, "start job failed", err)
		writeError(w, http.StatusServiceUnavailable, "could not queue job")
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     job.ID,
		"status": job.Status,
	})
}

// GetJob reports a job's status and, once finished, its result.
func (a *API) GetJob(w http.ResponseWriter, r *http.Request) {
	if a.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "async jobs are not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := a.jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		logFailure(r, "get job failed", err)
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// generate runs the pipeline, optionally compiles, and records history.
// History failures are logged and do not fail the generation.
func (a *API) generate(ctx context.Context, req *generateRequest) (*generateResponse, error) {
	res, err := a.pipeline.Generate(ctx, req.pipelineRequest())
	if err != nil {
		return nil, err
	}

	resp := &generateResponse{
		ID:        uuid.New(),
		Layout:    res.Layout,
		MJML:      res.RefinedMJML,
		StyleUsed: res.StyleUsed,
		Metrics:   res.Metrics,
	}

	if req.Compile {
		html, err := mjml.ToHTML(ctx, res.RefinedMJML, true)
		if err != nil {
			slog.Warn("compile generated email failed", "layout", res.Layout.LayoutID, "error", err)
			resp.CompileError = compileMessage(err)
		} else {
			resp.HTML = html
		}
	}

	if a.history != nil {
		rec := &models.GeneratedEmail{
			EmailType:        res.Layout.EmailType,
			Aesthetic:        res.Layout.Aesthetic,
			Skin:             res.StyleUsed.ID,
			LayoutID:         res.Layout.LayoutID,
			BrandURL:         generator.BrandURL(req.Brand),
			MJML:             res.RefinedMJML,
			Model:            res.Metrics.Model,
			PromptTokens:     res.Metrics.Usage.PromptTokens,
			CompletionTokens: res.Metrics.Usage.CompletionTokens,
			DurationMS:       res.Metrics.TotalMS,
		}
		if err := a.history.Create(ctx, rec); err != nil {
			slog.Warn("record generated email failed", "layout", res.Layout.LayoutID, "error", err)
		} else {
			resp.ID = rec.ID
		}
	}
	return resp, nil
}
