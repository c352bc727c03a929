// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"time"

	"mailsmith/internal/ai"
)

// Step names recorded in GenerationMetrics.
const (
	StepLayout   = "layout"
	StepProducts = "products"
	StepLinks    = "links"
	StepRefine   = "refine"
	StepTheme    = "theme"
	StepFormat   = "format"
)

// StepMetric is the wall time spent in one pipeline step.
type StepMetric struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"durationMs"`
}

// GenerationMetrics accumulates timing and token usage for one request.
// It is owned by a single pipeline run and is not safe for concurrent use.
type GenerationMetrics struct {
	Steps   []StepMetric `json:"steps"`
	Model   string       `json:"model,omitempty"`
	Usage   ai.Usage     `json:"usage"`
	TotalMS int64        `json:"totalMs"`

	// Degraded lists steps that fell back to a plainer result.
	Degraded []string `json:"degraded,omitempty"`

	start time.Time
}

func newMetrics() *GenerationMetrics {
	return &GenerationMetrics{start: time.Now()}
}

// Time starts timing step and returns the function that stops it.
func (m *GenerationMetrics) Time(step string) func() {
	began := time.Now()
	return func() {
		m.Steps = append(m.Steps, StepMetric{Name: step, DurationMS: time.Since(began).Milliseconds()})
	}
}

// Degrade records that step recovered locally.
func (m *GenerationMetrics) Degrade(step string) {
	m.Degraded = append(m.Degraded, step)
}

// Duration returns the recorded time for step, or zero.
func (m *GenerationMetrics) Duration(step string) time.Duration {
	for _, s := range m.Steps {
		if s.Name == step {
			return time.Duration(s.DurationMS) * time.Millisecond
		}
	}
	return 0
}

func (m *GenerationMetrics) finish() {
	m.TotalMS = time.Since(m.start).Milliseconds()
}

// LogAttrs flattens the metrics into slog key/value pairs.
func (m *GenerationMetrics) LogAttrs() []any {
	attrs := make([]any, 0, 2*len(m.Steps)+10)
	for _, s := range m.Steps {
		attrs = append(attrs, s.Name+"_ms", s.DurationMS)
	}
	attrs = append(attrs,
		"total_ms", m.TotalMS,
		"model", m.Model,
		"prompt_tokens", m.Usage.PromptTokens,
		"completion_tokens", m.Usage.CompletionTokens,
	)
	if len(m.Degraded) > 0 {
		attrs = append(attrs, "degraded", m.Degraded)
	}
	return attrs
}
