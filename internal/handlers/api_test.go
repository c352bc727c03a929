// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"mailsmith/internal/generator"
	"mailsmith/internal/jobs"
	"mailsmith/internal/models"
)

const validGenerateBody = `{
	"emailType": "newsletter",
	"aesthetic": "skeleton",
	"skin": "gradient",
	"brand": {"brandName": "Acme", "website": "acme.test"},
	"seed": "abc",
	"instructions": "Mention the spring sale."
}`

func TestGenerate(t *testing.T) {
	t.Run("success returns and records the email", func(t *testing.T) {
		env := newTestEnv(t)
		rr := httptest.NewRecorder()
		env.api.Generate(rr, jsonRequest(http.MethodPost, "/api/generate", validGenerateBody))

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
		}
		var resp generateResponse
		decodeBody(t, rr, &resp)

		if resp.Layout == nil || resp.Layout.LayoutID != "newsletter-skeleton-0000002a" {
			t.Errorf("layout: got %+v", resp.Layout)
		}
		if !strings.HasPrefix(resp.MJML, "<mjml>") {
			t.Errorf("mjml: got %q", resp.MJML)
		}
		if resp.HTML != "" {
			t.Error("html should be omitted unless compile is requested")
		}

		stored, _ := env.history.FindByID(t.Context(), resp.ID)
		if stored == nil {
			t.Fatalf("email %s not recorded", resp.ID)
		}
		if stored.BrandURL != "https://acme.test" || stored.Skin != "minimal_clean" || stored.PromptTokens != 100 {
			t.Errorf("stored record: %+v", stored)
		}
	})

	t.Run("maps fields onto the pipeline request", func(t *testing.T) {
		env := newTestEnv(t)
		env.api.Generate(httptest.NewRecorder(), jsonRequest(http.MethodPost, "/api/generate", validGenerateBody))

		got := env.pipeline.last
		if got.EmailType != "newsletter" || got.Skin != "gradient" || got.Seed != "abc" ||
			got.Instructions != "Mention the spring sale." || got.Brand["brandName"] != "Acme" {
			t.Errorf("pipeline request: %+v", got)
		}
	})

	t.Run("history failure does not fail generation", func(t *testing.T) {
		env := newTestEnv(t)
		env.history.createErr = errors.New("db down")
		rr := httptest.NewRecorder()
		env.api.Generate(rr, jsonRequest(http.MethodPost, "/api/generate", validGenerateBody))

		if rr.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rr.Code)
		}
	})

	t.Run("works without history", func(t *testing.T) {
		api := NewAPI(&fakePipeline{}, nil, nil, nil)
		rr := httptest.NewRecorder()
		api.Generate(rr, jsonRequest(http.MethodPost, "/api/generate", validGenerateBody))

		if rr.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rr.Code)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		env := newTestEnv(t)
		rr := httptest.NewRecorder()
		env.api.Generate(rr, jsonRequest(http.MethodPost, "/api/generate", `{"brand":{}}`))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "emailType is required") {
			t.Errorf("body: %s", rr.Body.String())
		}
	})

	t.Run("upstream error maps to 502", func(t *testing.T) {
		env := newTestEnv(t)
		env.pipeline.err = &generator.UpstreamError{Err: errors.New("secret provider detail")}
		rr := httptest.NewRecorder()
		env.api.Generate(rr, jsonRequest(http.MethodPost, "/api/generate", validGenerateBody))

		if rr.Code != http.StatusBadGateway {
			t.Errorf("status: got %d, want 502", rr.Code)
		}
		if strings.Contains(rr.Body.String(), "secret") {
			t.Errorf("provider detail leaked: %s", rr.Body.String())
		}
	})
}

func TestJobs(t *testing.T) {
	t.Run("start then fetch result", func(t *testing.T) {
		env := newTestEnv(t)
		rr := httptest.NewRecorder()
		env.api.StartJob(rr, jsonRequest(http.MethodPost, "/api/jobs", validGenerateBody))

		if rr.Code != http.StatusAccepted {
			t.Fatalf("status: got %d, want 202 (%s)", rr.Code, rr.Body.String())
		}
		var started struct {
			ID     uuid.UUID   `json:"id"`
			Status jobs.Status `json:"status"`
		}
		decodeBody(t, rr, &started)
		if started.Status != jobs.StatusPending {
			t.Errorf("status field: got %q", started.Status)
		}
		if loc := rr.Header().Get("Location"); loc != "/api/jobs/"+started.ID.String() {
			t.Errorf("Location: got %q", loc)
		}

		rr = httptest.NewRecorder()
		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/jobs/x", nil), "id", started.ID.String())
		env.api.GetJob(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("get status: got %d", rr.Code)
		}
		var job jobs.Job
		decodeBody(t, rr, &job)
		if job.Status != jobs.StatusSucceeded {
			t.Fatalf("job status: got %q (%s)", job.Status, job.Error)
		}
		var result generateResponse
		if err := json.Unmarshal(job.Result, &result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if result.Layout == nil || result.MJML == "" {
			t.Errorf("result: %+v", result)
		}
	})

	t.Run("failed job carries a generic message", func(t *testing.T) {
		env := newTestEnv(t)
		env.pipeline.err = &generator.UpstreamError{Err: errors.New("api key sk-123 invalid")}
		rr := httptest.NewRecorder()
		env.api.StartJob(rr, jsonRequest(http.MethodPost, "/api/jobs", validGenerateBody))

		var started struct {
			ID uuid.UUID `json:"id"`
		}
		decodeBody(t, rr, &started)
		job, err := env.jobs.Get(t.Context(), started.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status != jobs.StatusFailed || job.Error != "upstream model error" {
			t.Errorf("job: status=%q error=%q", job.Status, job.Error)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		env := newTestEnv(t)
		rr := httptest.NewRecorder()
		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", uuid.NewString())
		env.api.GetJob(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rr.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		env := newTestEnv(t)
		rr := httptest.NewRecorder()
		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "not-a-uuid")
		env.api.GetJob(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})

	t.Run("jobs not configured", func(t *testing.T) {
		api := NewAPI(&fakePipeline{}, nil, nil, nil)
		rr := httptest.NewRecorder()
		api.StartJob(rr, jsonRequest(http.MethodPost, "/api/jobs", validGenerateBody))

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status: got %d, want 503", rr.Code)
		}
	})
}

func TestEmails(t *testing.T) {
	env := newTestEnv(t)
	rec := &models.GeneratedEmail{EmailType: "Promotion", MJML: "<mjml></mjml>"}
	if err := env.history.Create(t.Context(), rec); err != nil {
		t.Fatal(err)
	}

	t.Run("list omits documents", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.api.ListEmails(rr, httptest.NewRequest(http.MethodGet, "/api/emails?limit=5", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d", rr.Code)
		}
		var body struct {
			Emails []models.GeneratedEmail `json:"emails"`
		}
		decodeBody(t, rr, &body)
		if len(body.Emails) != 1 || body.Emails[0].MJML != "" {
			t.Errorf("emails: %+v", body.Emails)
		}
		if env.history.lastLimit != 5 {
			t.Errorf("limit: got %d, want 5", env.history.lastLimit)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.api.ListEmails(rr, httptest.NewRequest(http.MethodGet, "/api/emails?limit=-1", nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})

	t.Run("get includes document", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", rec.ID.String())
		env.api.GetEmail(rr, req)

		var got models.GeneratedEmail
		decodeBody(t, rr, &got)
		if got.MJML != "<mjml></mjml>" {
			t.Errorf("mjml: got %q", got.MJML)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", uuid.NewString())
		env.api.GetEmail(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rr.Code)
		}
	})

	t.Run("history not configured", func(t *testing.T) {
		api := NewAPI(&fakePipeline{}, nil, nil, nil)
		rr := httptest.NewRecorder()
		api.ListEmails(rr, httptest.NewRequest(http.MethodGet, "/api/emails", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status: got %d, want 503", rr.Code)
		}
	})
}

func TestSkins(t *testing.T) {
	env := newTestEnv(t)
	rr := httptest.NewRecorder()
	env.api.Skins(rr, httptest.NewRequest(http.MethodGet, "/api/skins", nil))

	var body struct {
		Skins   []string          `json:"skins"`
		Aliases map[string]string `json:"aliases"`
	}
	decodeBody(t, rr, &body)
	if len(body.Skins) != 8 {
		t.Errorf("skins: got %v", body.Skins)
	}
	if body.Aliases["gradient"] != "gradient_glow" {
		t.Errorf("gradient alias: got %q", body.Aliases["gradient"])
	}
}

func TestTheme(t *testing.T) {
	env := newTestEnv(t)

	t.Run("restyles without the model", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := `{"mjml":"<mjml><mj-body></mj-body></mjml>","brand":{"primaryColor":"#ff0000"},"skin":"gradient"}`
		env.api.Theme(rr, jsonRequest(http.MethodPost, "/api/theme", body))

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d (%s)", rr.Code, rr.Body.String())
		}
		var got struct {
			MJML      string `json:"mjml"`
			StyleUsed struct {
				ID string `json:"id"`
			} `json:"styleUsed"`
		}
		decodeBody(t, rr, &got)
		if !strings.HasPrefix(got.MJML, "restyled:") || got.StyleUsed.ID != "gradient_glow" {
			t.Errorf("response: %+v", got)
		}
	})

	t.Run("rejects non-mjml input", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.api.Theme(rr, jsonRequest(http.MethodPost, "/api/theme", `{"mjml":"<html></html>"}`))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})
}

func TestCompile(t *testing.T) {
	env := newTestEnv(t)

	t.Run("rejects empty document", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.api.Compile(rr, jsonRequest(http.MethodPost, "/api/compile", `{"mjml":""}`))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rr.Code)
		}
	})

	t.Run("renders html", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping mjml compile in short mode")
		}
		rr := httptest.NewRecorder()
		body := `{"mjml":"<mjml><mj-body><mj-section><mj-column><mj-text>Hi</mj-text></mj-column></mj-section></mj-body></mjml>"}`
		env.api.Compile(rr, jsonRequest(http.MethodPost, "/api/compile", body))

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d (%s)", rr.Code, rr.Body.String())
		}
		var got map[string]string
		decodeBody(t, rr, &got)
		if !strings.Contains(got["html"], "Hi") {
			t.Errorf("html: %.200s", got["html"])
		}
	})
}
