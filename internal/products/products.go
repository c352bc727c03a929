// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package products renders the dynamic product section of promotion and
// product-grid emails from pre-authored, count-tiered fragments.
package products

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"mailsmith/internal/blocks"
	"mailsmith/internal/markup"
)

// Product is one product record from the brand payload.
type Product struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Price      string `json:"price,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
	ButtonText string `json:"buttonText,omitempty"`
	ButtonURL  string `json:"buttonUrl,omitempty"`
}

// DefaultButtonText is used when a product has no button label.
const DefaultButtonText = "Shop now"

// placeholderRe matches product placeholders and captures the product number.
var placeholderRe = regexp.MustCompile(`\{\{P(\d+)_[A-Z_]+\}\}`)

// Renderer fills product-section fragments from a block repository.
type Renderer struct {
	repo *blocks.Repository
}

// NewRenderer creates a renderer over repo.
func NewRenderer(repo *blocks.Repository) *Renderer {
	return &Renderer{repo: repo}
}

// Render picks the product-section fragment best matching desiredCount and
// fills it from products. desiredCount <= 0 means "as many as there are
// products". The variant among same-count fragments is chosen from seed, so
// the same seed always renders the same fragment.
//
// Render returns "" when products is empty or the aesthetic has no usable
// product-section fragment; it only returns an error for unexpected I/O
// failures, which callers may also treat as "".
func (r *Renderer) Render(ctx context.Context, emailType, aesthetic string, products []Product, seed string, desiredCount int) (string, error) {
	if len(products) == 0 {
		return "", nil
	}
	if desiredCount <= 0 || desiredCount > len(products) {
		desiredCount = len(products)
	}

	tiers, err := r.repo.ProductTiers(ctx, emailType, aesthetic)
	if err != nil {
		if errors.Is(err, blocks.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("product tiers %s/%s: %w", emailType, aesthetic, err)
	}
	count, ok := PickTier(tiers, desiredCount)
	if !ok {
		return "", nil
	}

	variants, err := r.repo.ProductVariants(ctx, emailType, aesthetic, count)
	if err != nil {
		if errors.Is(err, blocks.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("product variants %s/%s/%d: %w", emailType, aesthetic, count, err)
	}
	if len(variants) == 0 {
		return "", nil
	}
	variant := variants[seedIndex(seed, len(variants))]

	frag, err := r.repo.ReadProductVariant(ctx, emailType, aesthetic, count, variant)
	if err != nil {
		if errors.Is(err, blocks.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read product variant %s: %w", variant, err)
	}

	slog.Debug("product section selected", "type", emailType, "aesthetic", aesthetic, "tier", count, "variant", variant)
	return Fill(frag, products, count), nil
}

// PickTier returns the largest tier not above desired, or the smallest
// tier if every tier is larger.
func PickTier(tiers []int, desired int) (int, bool) {
	if len(tiers) == 0 {
		return 0, false
	}
	best, smallest := 0, tiers[0]
	for _, t := range tiers {
		if t <= desired && t > best {
			best = t
		}
		if t < smallest {
			smallest = t
		}
	}
	if best == 0 {
		return smallest, true
	}
	return best, true
}

// Fill replaces {{P<N>_*}} placeholders for N = 1..count and removes any
// that remain. Values are HTML-escaped. When there are fewer products than
// the tier holds, mj-columns that only reference missing products are
// dropped so no empty card is rendered.
func Fill(fragment string, products []Product, count int) string {
	filled := min(count, len(products))
	fragment = dropUnfilledColumns(fragment, filled)

	pairs := make([]string, 0, filled*12)
	for n := 1; n <= filled; n++ {
		p := products[n-1]
		button := p.ButtonText
		if button == "" {
			button = DefaultButtonText
		}
		prefix := "{{P" + strconv.Itoa(n) + "_"
		pairs = append(pairs,
			prefix+"TITLE}}", html.EscapeString(p.Title),
			prefix+"SUBTITLE}}", html.EscapeString(p.Subtitle),
			prefix+"PRICE}}", html.EscapeString(p.Price),
			prefix+"IMAGE_URL}}", html.EscapeString(p.ImageURL),
			prefix+"BUTTON_TEXT}}", html.EscapeString(button),
			prefix+"BUTTON_URL}}", html.EscapeString(p.ButtonURL),
		)
	}
	out := strings.NewReplacer(pairs...).Replace(fragment)
	return placeholderRe.ReplaceAllString(out, "")
}

// dropUnfilledColumns removes every mj-column whose placeholders all refer
// to products above filled. Columns without placeholders are kept.
func dropUnfilledColumns(fragment string, filled int) string {
	tags := markup.Scan(fragment)
	ed := markup.NewEditor(fragment)
	for k := 0; k < len(tags); k++ {
		t := tags[k]
		if t.Name != "mj-column" || !t.Opening() {
			continue
		}
		c := markup.MatchClose(tags, k)
		if c < 0 {
			continue
		}
		if onlyMissing(fragment[t.Start:tags[c].End], filled) {
			ed.Replace(t.Start, tags[c].End, "")
		}
		k = c
	}
	return ed.String()
}

func onlyMissing(column string, filled int) bool {
	matches := placeholderRe.FindAllStringSubmatch(column, -1)
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= filled {
			return false
		}
	}
	return true
}

// seedIndex maps seed onto [0, n) with FNV-1a.
func seedIndex(seed string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return int(h.Sum32() % uint32(n))
}

// FromPayload extracts the product list from a brand payload, reading the
// top-level "products" key or the "brandData" mirror. Records without a
// title or name are skipped.
func FromPayload(payload map[string]any) []Product {
	raw, ok := payload["products"].([]any)
	if !ok {
		if bd, ok := payload["brandData"].(map[string]any); ok {
			raw, _ = bd["products"].([]any)
		}
	}
	var out []Product
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p := Product{
			Title:      firstString(m, "title", "name"),
			Subtitle:   firstString(m, "subtitle", "description"),
			Price:      priceString(m["price"]),
			ImageURL:   firstString(m, "image", "imageUrl", "image_url"),
			ButtonText: firstString(m, "buttonText", "button_text"),
			ButtonURL:  firstString(m, "url", "buttonUrl", "button_url"),
		}
		if p.Title == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func priceString(v any) string {
	switch p := v.(type) {
	case string:
		return strings.TrimSpace(p)
	case float64:
		return strconv.FormatFloat(p, 'f', 2, 64)
	case int:
		return strconv.Itoa(p)
	}
	return ""
}
