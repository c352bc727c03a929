// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedEmail is one finished generation kept for history. The MJML is
// the final themed and formatted document.
type GeneratedEmail struct {
	ID               uuid.UUID `json:"id"`
	EmailType        string    `json:"email_type"`
	Aesthetic        string    `json:"aesthetic"`
	Skin             string    `json:"skin"`
	LayoutID         string    `json:"layout_id"`
	BrandURL         string    `json:"brand_url"`
	MJML             string    `json:"mjml,omitempty"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	DurationMS       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// TotalTokens returns prompt plus completion tokens.
func (e *GeneratedEmail) TotalTokens() int {
	return e.PromptTokens + e.CompletionTokens
}
