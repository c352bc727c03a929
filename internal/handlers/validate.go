// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation limits for API inputs.
const (
	maxEmailTypeLen    = 64
	maxAestheticLen    = 64
	maxSeedLen         = 200
	maxInstructionsLen = 4_000
	maxModelLen        = 100
	maxProductCount    = 12
	maxMJMLLen         = 500_000
	maxSubjectLen      = 200
)

// libraryNameRe limits names that select fragment library folders.
var libraryNameRe = regexp.MustCompile(`^[A-Za-z0-9 _-]*$`)

// validateGenerate checks a generation request and returns the first error
// found.
func validateGenerate(req *generateRequest) string {
	if strings.TrimSpace(req.EmailType) == "" {
		return "emailType is required."
	}
	if utf8.RuneCountInString(req.EmailType) > maxEmailTypeLen {
		return "emailType is too long (max 64 characters)."
	}
	if !libraryNameRe.MatchString(req.EmailType) {
		return "emailType may only contain letters, digits, spaces, '_' and '-'."
	}
	if utf8.RuneCountInString(req.Aesthetic) > maxAestheticLen || utf8.RuneCountInString(req.Skin) > maxAestheticLen {
		return "aesthetic and skin must be at most 64 characters."
	}
	if !libraryNameRe.MatchString(req.Aesthetic) {
		return "aesthetic may only contain letters, digits, spaces, '_' and '-'."
	}
	if req.Brand == nil {
		return "brand is required."
	}
	if req.ProductCount < 0 || req.ProductCount > maxProductCount {
		return "productCount must be between 0 and 12."
	}
	if utf8.RuneCountInString(req.Seed) > maxSeedLen {
		return "seed is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(req.Instructions) > maxInstructionsLen {
		return "instructions are too long (max 4,000 characters)."
	}
	if utf8.RuneCountInString(req.Model) > maxModelLen {
		return "model is too long (max 100 characters)."
	}
	return ""
}

// validateMJML checks a client-supplied MJML document.
func validateMJML(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "mjml is required."
	}
	if len(doc) > maxMJMLLen {
		return "mjml is too long (max 500,000 bytes)."
	}
	if !strings.Contains(strings.ToLower(doc), "<mjml") {
		return "mjml must contain an <mjml> root."
	}
	return ""
}

// validatePreview checks a preview delivery request.
func validatePreview(req *previewRequest) string {
	if strings.TrimSpace(req.To) == "" {
		return "to is required."
	}
	if _, err := mail.ParseAddress(req.To); err != nil {
		return "to must be a valid email address."
	}
	if utf8.RuneCountInString(req.Subject) > maxSubjectLen {
		return "subject is too long (max 200 characters)."
	}
	return ""
}
