// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generator runs the two-pass email pipeline: a deterministic
// layout is composed from library fragments, an LLM rewrites its copy
// in place, and the result is themed and formatted without further LLM
// involvement.
package generator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"strings"

	"mailsmith/internal/ai"
	"mailsmith/internal/blocks"
	"mailsmith/internal/layout"
	"mailsmith/internal/links"
	"mailsmith/internal/markup"
	"mailsmith/internal/mjml"
	"mailsmith/internal/products"
	"mailsmith/internal/theme"
)

// Completer is the text-completion capability used by the refine pass.
// *ai.Registry satisfies it.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (*ai.Response, error)
}

// UpstreamError wraps a failed completion call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "generator: refine: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// productAesthetics is the cascade tried after the requested aesthetic.
var productAesthetics = []string{blocks.SkeletonAesthetic, "minimal_clean", "bold_contrasting"}

// brandURLKeys are the payload fields that may carry the brand homepage.
var brandURLKeys = []string{"website", "brandUrl", "url", "homepage", "brand_url", "websiteUrl"}

// Request describes one email to generate.
type Request struct {
	EmailType string
	Aesthetic string
	// Skin overrides Aesthetic for theming when set.
	Skin         string
	Brand        map[string]any
	ProductCount int
	// Seed makes block, divider and product choices reproducible.
	Seed         string
	Instructions string
	// Model overrides the provider's default model.
	Model string
}

// SkinID returns the skin requested for theming.
func (r Request) SkinID() string {
	if strings.TrimSpace(r.Skin) != "" {
		return r.Skin
	}
	return r.Aesthetic
}

// Result is the output of one pipeline run.
type Result struct {
	Layout      *layout.Layout     `json:"layout"`
	RefinedMJML string             `json:"mjml"`
	StyleUsed   theme.SkinPack     `json:"styleUsed"`
	Metrics     *GenerationMetrics `json:"metrics"`
}

// Generator wires the pipeline stages together. It holds no per-request
// state and is safe for concurrent use.
type Generator struct {
	composer *layout.Composer
	products *products.Renderer
	llm      Completer
	format   mjml.Options
}

// New creates a generator reading fragments from repo and refining copy
// through llm.
func New(repo *blocks.Repository, llm Completer, format mjml.Options) *Generator {
	return &Generator{
		composer: layout.NewComposer(repo),
		products: products.NewRenderer(repo),
		llm:      llm,
		format:   format,
	}
}

// Generate runs every stage in order. Configuration and upstream errors
// abort the run; product and link problems only make the result plainer.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	m := newMetrics()
	rnd := seededRand(req.Seed)

	stop := m.Time(StepLayout)
	l, err := g.composer.ChooseLayout(ctx, req.EmailType, req.Aesthetic, rnd)
	if err != nil {
		stop()
		return nil, err
	}
	doc, err := g.composer.ComposeBaseMJML(ctx, l, rnd)
	stop()
	if err != nil {
		return nil, err
	}

	stop = m.Time(StepProducts)
	doc = g.productStage(ctx, doc, l, req, m)
	stop()

	stop = m.Time(StepLinks)
	brandURL := BrandURL(req.Brand)
	if brandURL == "" {
		m.Degrade(StepLinks)
	}
	doc = links.InjectBrandLinks(doc, brandURL)
	stop()

	stop = m.Time(StepRefine)
	doc, err = g.refine(ctx, doc, l, req, brandURL, m)
	stop()
	if err != nil {
		return nil, err
	}

	stop = m.Time(StepTheme)
	themed, skin := theme.ApplyTheme(doc, req.Brand, req.SkinID())
	stop()

	stop = m.Time(StepFormat)
	final := mjml.FormatMJML(themed, g.format)
	stop()

	m.finish()
	slog.Info("email generated",
		append([]any{"layout", l.LayoutID, "skin", skin.ID}, m.LogAttrs()...)...)

	return &Result{Layout: l, RefinedMJML: final, StyleUsed: skin, Metrics: m}, nil
}

// Restyle themes and formats an existing document without calling the LLM.
func (g *Generator) Restyle(doc string, brand map[string]any, skinID string) (string, theme.SkinPack) {
	themed, skin := theme.ApplyTheme(doc, brand, skinID)
	return mjml.FormatMJML(themed, g.format), skin
}

// productStage replaces the product placeholder with a rendered section,
// or strips it when there is nothing to render.
func (g *Generator) productStage(ctx context.Context, doc string, l *layout.Layout, req Request, m *GenerationMetrics) string {
	if !l.UseProductSectionToken {
		return StripProductToken(doc)
	}
	items := products.FromPayload(req.Brand)
	if len(items) == 0 {
		slog.Debug("no products in payload", "layout", l.LayoutID)
		m.Degrade(StepProducts)
		return StripProductToken(doc)
	}

	frag := g.renderProducts(ctx, l, items, req.ProductCount)
	if frag == "" {
		slog.Warn("no product section fragment found", "type", l.EmailType, "aesthetic", l.Aesthetic)
		m.Degrade(StepProducts)
		return StripProductToken(doc)
	}
	return InjectProductSection(doc, frag)
}

// renderProducts walks the aesthetic cascade and returns the first
// non-empty rendering.
func (g *Generator) renderProducts(ctx context.Context, l *layout.Layout, items []products.Product, count int) string {
	seen := make(map[string]bool)
	for _, a := range append([]string{l.Aesthetic}, productAesthetics...) {
		a = blocks.NormalizeAesthetic(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true

		frag, err := g.products.Render(ctx, l.EmailType, a, items, l.LayoutID, count)
		if err != nil {
			slog.Warn("product section render failed", "aesthetic", a, "error", err)
			continue
		}
		if frag != "" {
			return frag
		}
	}
	return ""
}

// refine sends the document through the LLM copy pass. A response that
// lost the document's structure is discarded in favour of doc.
func (g *Generator) refine(ctx context.Context, doc string, l *layout.Layout, req Request, brandURL string, m *GenerationMetrics) (string, error) {
	resp, err := g.llm.Complete(ctx, ai.Request{
		SystemPrompt: refineSystemPrompt,
		UserPrompt:   buildRefinePrompt(doc, req.EmailType, req.Brand, brandURL, req.Instructions),
		Model:        req.Model,
		Temperature:  ai.Float(refineTemperature),
	})
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	m.Model = resp.Model
	m.Usage = resp.Usage

	refined := extractMJML(resp.Text)
	if err := validateRefined(doc, refined, l); err != nil {
		slog.Warn("refined document drifted, keeping composed copy", "layout", l.LayoutID, "error", err)
		m.Degrade(StepRefine)
		return doc, nil
	}
	return refined, nil
}

var (
	errMissingRoot     = errors.New("missing <mjml> root")
	errMissingClose    = errors.New("missing </mjml> close")
	errMissingSentinel = errors.New("hero sentinel removed")
)

// validateRefined checks that the rewrite kept the root element and its
// close tag, the hero sentinel and every block marker the composed document
// carried.
func validateRefined(before, after string, l *layout.Layout) error {
	if !mjmlOpenRe.MatchString(after) {
		return errMissingRoot
	}
	if mjmlCloseRe.MatchString(before) && !mjmlCloseRe.MatchString(after) {
		return errMissingClose
	}
	if containsFold(before, markup.HeroSentinel) && !containsFold(after, markup.HeroSentinel) {
		return errMissingSentinel
	}
	for _, marker := range l.Markers() {
		if strings.Contains(before, marker) && !strings.Contains(after, marker) {
			return fmt.Errorf("marker %q removed", marker)
		}
	}
	return nil
}

// InjectProductSection places frag at the product placeholder. Without a
// placeholder it goes after the first section, then before </mj-body>,
// then at the end. Any leftover placeholders are removed.
func InjectProductSection(doc, frag string) string {
	section := sectionEndRe.FindStringIndex(doc)
	body := lastMatch(bodyCloseRe, doc)
	switch {
	case strings.Contains(doc, layout.ProductSectionToken):
		doc = strings.Replace(doc, layout.ProductSectionToken, frag, 1)
	case section != nil:
		i := section[1]
		doc = doc[:i] + "\n" + frag + doc[i:]
	case body != nil:
		i := body[0]
		doc = doc[:i] + frag + "\n" + doc[i:]
	default:
		doc += "\n" + frag
	}
	return StripProductToken(doc)
}

// StripProductToken removes every product placeholder.
func StripProductToken(doc string) string {
	doc = strings.ReplaceAll(doc, layout.ProductSectionToken+"\n", "")
	return strings.ReplaceAll(doc, layout.ProductSectionToken, "")
}

// BrandURL returns the first usable brand homepage in payload, checking the
// top level before the brandData mirror. Returns "" when none is usable.
func BrandURL(payload map[string]any) string {
	sources := []map[string]any{payload}
	if bd, ok := payload["brandData"].(map[string]any); ok {
		sources = append(sources, bd)
	}
	for _, src := range sources {
		for _, key := range brandURLKeys {
			raw, ok := src[key].(string)
			if !ok {
				continue
			}
			if u := links.NormalizeBrandURL(raw); u != "" {
				return u
			}
		}
	}
	return ""
}

// seededRand derives a generator from seed. An empty seed yields nil, which
// the layout composer treats as unseeded.
func seededRand(seed string) *rand.Rand {
	if seed == "" {
		return nil
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	s := h.Sum64()
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(sub))
}
