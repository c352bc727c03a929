// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"

	"mailsmith/internal/mjml"
	"mailsmith/internal/theme"
)

// Skins lists the canonical skin ids and the aliases that resolve to them.
func (a *API) Skins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"skins":   theme.Skins(),
		"aliases": theme.Aliases(),
	})
}

type themeRequest struct {
	MJML  string         `json:"mjml"`
	Brand map[string]any `json:"brand"`
	Skin  string         `json:"skin"`
}

// Theme re-skins an existing document without calling the model.
func (a *API) Theme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if msg := decodeJSON(w, r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateMJML(req.MJML); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	doc, skin := a.pipeline.Restyle(req.MJML, req.Brand, req.Skin)
	writeJSON(w, http.StatusOK, map[string]any{
		"mjml":      doc,
		"styleUsed": skin,
	})
}

type compileRequest struct {
	MJML   string `json:"mjml"`
	Minify bool   `json:"minify"`
}

// Compile renders MJML to HTML.
func (a *API) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if msg := decodeJSON(w, r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateMJML(req.MJML); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	html, err := mjml.ToHTML(r.Context(), req.MJML, req.Minify)
	if err != nil {
		var cerr *mjml.CompileError
		if errors.As(err, &cerr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   cerr.Message,
				"details": cerr.Details,
			})
			return
		}
		logFailure(r, "compile failed", err)
		writeError(w, http.StatusInternalServerError, "compile failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": html})
}

// compileMessage returns the client-facing text for a compile failure.
func compileMessage(err error) string {
	var cerr *mjml.CompileError
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return "compile failed"
}
