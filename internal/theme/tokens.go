// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

// Gradient is a two-stop linear gradient.
type Gradient struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Angle int    `json:"angle"`
}

// BrandTokens is the canonical brand palette. Every color is "#rrggbb".
type BrandTokens struct {
	PageBg     string   `json:"pageBg"`
	SectionBg  string   `json:"sectionBg"`
	Text       string   `json:"text"`
	Muted      string   `json:"muted"`
	Brand      string   `json:"brand"`
	BrandAlt   string   `json:"brandAlt"`
	Border     string   `json:"border"`
	CardBg     string   `json:"cardBg"`
	ButtonText string   `json:"buttonText"`
	Gradient   Gradient `json:"gradient"`
}

// Default palette used when the payload has no usable color.
var defaultTokens = BrandTokens{
	PageBg:    "#f4f4f5",
	SectionBg: "#ffffff",
	Text:      "#111827",
	Muted:     "#6b7280",
	Brand:     "#6d28d9",
	Border:    "#e5e7eb",
	CardBg:    "#ffffff",
}

const (
	gradientAngle = 135
	// brandAltShift is how far brandAlt is mixed away from brand.
	brandAltShift = 0.30
)

// Payload keys consulted per token, in priority order.
var (
	brandKeys      = []string{"primary_color", "brand_color", "primaryColor", "button_background_color", "button_bg_color"}
	brandAltKeys   = []string{"secondary_color", "link_color", "accent_color", "secondaryColor", "linkColor"}
	textKeys       = []string{"text_color", "body_color", "textColor"}
	pageBgKeys     = []string{"background_color", "bg_color", "backgroundColor"}
	buttonTextKeys = []string{"button_text_color", "buttonTextColor"}
)

// BuildBrandTokens derives the brand palette from a raw payload. Colors are
// read from the top level or the nested "brandData" object; invalid or
// missing values fall back to the default palette.
func BuildBrandTokens(payload map[string]any) BrandTokens {
	t := defaultTokens

	if c, ok := payloadColor(payload, pageBgKeys); ok {
		t.PageBg = c
	}
	if IsDark(t.PageBg) {
		t.SectionBg = Mix(t.PageBg, white, 0.06)
		t.Border = Mix(t.PageBg, white, 0.2)
	}
	// Cards sit on the page; keep them in the page's luminance class.
	if IsDark(t.CardBg) != IsDark(t.PageBg) {
		t.CardBg = Mix(t.CardBg, t.PageBg, 0.85)
	}

	if c, ok := payloadColor(payload, brandKeys); ok {
		t.Brand = c
	}
	t.BrandAlt = shiftAway(t.Brand, brandAltShift)
	if c, ok := payloadColor(payload, brandAltKeys); ok && c != t.Brand {
		t.BrandAlt = c
	}

	c, textSet := payloadColor(payload, textKeys)
	if textSet {
		t.Text = c
	}
	if ContrastRatio(t.Text, t.SectionBg) < MinContrast {
		t.Text = ReadableOn(t.SectionBg)
		textSet = true
	}
	if textSet {
		t.Muted = Mix(t.Text, t.SectionBg, 0.4)
	}
	if ContrastRatio(t.Muted, t.SectionBg) < 3 {
		t.Muted = Mix(t.Text, t.SectionBg, 0.2)
	}

	t.ButtonText = ReadableOn(t.Brand)
	if c, ok := payloadColor(payload, buttonTextKeys); ok && ContrastRatio(c, t.Brand) >= MinContrast {
		t.ButtonText = c
	}

	t.Gradient = Gradient{From: t.Brand, To: t.BrandAlt, Angle: gradientAngle}
	return t
}

// payloadColor returns the first valid hex color under keys, looking at the
// top level before brandData.
func payloadColor(payload map[string]any, keys []string) (string, bool) {
	scopes := []map[string]any{payload}
	if bd, ok := payload["brandData"].(map[string]any); ok {
		scopes = append(scopes, bd)
	}
	for _, scope := range scopes {
		for _, k := range keys {
			if s, ok := scope[k].(string); ok {
				if h, ok := NormalizeHex(s); ok {
					return h, true
				}
			}
		}
	}
	return "", false
}
