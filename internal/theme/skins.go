// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"sort"
	"strings"
)

// Canonical skin ids.
const (
	SkinMinimalClean    = "minimal_clean"
	SkinBoldContrasting = "bold_contrasting"
	SkinGradientGlow    = "gradient_glow"
	SkinWarmEditorial   = "warm_editorial"
	SkinMagazineSerif   = "magazine_serif"
	SkinPastelSoft      = "pastel_soft"
	SkinLuxeMono        = "luxe_mono"
	SkinNeoBrutalist    = "neo_brutalist"
)

// Button variants.
const (
	ButtonFilled   = "filled"
	ButtonOutline  = "outline"
	ButtonGhost    = "ghost"
	ButtonGradient = "gradient"
)

var skinAliases = map[string]string{
	"gradient":  SkinGradientGlow,
	"glow":      SkinGradientGlow,
	"brutalist": SkinNeoBrutalist,
	"brutal":    SkinNeoBrutalist,
	"bold":      SkinBoldContrasting,
	"minimal":   SkinMinimalClean,
	"clean":     SkinMinimalClean,
	"editorial": SkinWarmEditorial,
	"warm":      SkinWarmEditorial,
	"magazine":  SkinMagazineSerif,
	"serif":     SkinMagazineSerif,
	"pastel":    SkinPastelSoft,
	"soft":      SkinPastelSoft,
	"luxe":      SkinLuxeMono,
	"luxury":    SkinLuxeMono,
	"mono":      SkinLuxeMono,
}

// exemptSkins keep their own colors: no text, button or legacy-hex recoloring.
var exemptSkins = map[string]bool{
	SkinLuxeMono:     true,
	SkinNeoBrutalist: true,
}

// Fonts names the heading and body families.
type Fonts struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// TypeScale is one heading level.
type TypeScale struct {
	Size       string `json:"size"`
	Weight     string `json:"weight"`
	LineHeight string `json:"lineHeight"`
}

// Radii are corner radii for cards, images and buttons.
type Radii struct {
	Card string `json:"card"`
	Img  string `json:"img"`
	Btn  string `json:"btn"`
}

// Buttons describes button styling.
type Buttons struct {
	Variant       string `json:"variant"`
	Pad           string `json:"pad"`
	Caps          bool   `json:"caps"`
	LetterSpacing string `json:"letterSpacing"`
}

// Img holds image defaults.
type Img struct {
	Width int `json:"width"`
}

// Space holds spacing defaults.
type Space struct {
	CardPad string `json:"cardPad"`
}

// Shadow holds box-shadow values.
type Shadow struct {
	Card string `json:"card"`
}

// Extras toggles skin-specific theming behavior.
type Extras struct {
	ColorOverrides       bool   `json:"colorOverrides"`
	ButtonContrastFromBg bool   `json:"buttonContrastFromBg"`
	GlobalGradient       bool   `json:"globalGradient"`
	SlabMode             bool   `json:"slabMode"`
	SlabColor            string `json:"slabColor,omitempty"`
}

// Pattern is a decorative background pattern.
type Pattern struct {
	Kind  string `json:"kind"`
	Grad1 string `json:"grad1"`
	Grad2 string `json:"grad2"`
	Angle int    `json:"angle"`
}

// SkinPack is a fully resolved theme, built per request.
type SkinPack struct {
	ID       string      `json:"id"`
	Fonts    Fonts       `json:"fonts"`
	Palette  BrandTokens `json:"palette"`
	H1       TypeScale   `json:"h1"`
	H2       TypeScale   `json:"h2"`
	BodySize string      `json:"bodySize"`
	Border   string      `json:"border"`
	Radii    Radii       `json:"radii"`
	Buttons  Buttons     `json:"buttons"`
	Img      Img         `json:"img"`
	Space    Space       `json:"space"`
	Shadow   Shadow      `json:"shadow"`
	Extras   Extras      `json:"extras"`
	Pattern  *Pattern    `json:"pattern"`
}

// Exempt reports whether the skin bypasses automatic color overrides.
func (s *SkinPack) Exempt() bool {
	return exemptSkins[s.ID]
}

// ResolveSkinID lowercases and underscores input, then applies the alias
// table. Unknown ids pass through; an empty id resolves to minimal_clean.
func ResolveSkinID(input string) string {
	id := strings.ToLower(strings.TrimSpace(input))
	id = strings.NewReplacer(" ", "_", "-", "_").Replace(id)
	if id == "" {
		return SkinMinimalClean
	}
	if canonical, ok := skinAliases[id]; ok {
		return canonical
	}
	return id
}

// Skins returns the canonical skin ids, sorted.
func Skins() []string {
	ids := []string{
		SkinMinimalClean, SkinBoldContrasting, SkinGradientGlow, SkinWarmEditorial,
		SkinMagazineSerif, SkinPastelSoft, SkinLuxeMono, SkinNeoBrutalist,
	}
	sort.Strings(ids)
	return ids
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(skinAliases))
	for k, v := range skinAliases {
		out[k] = v
	}
	return out
}

// MakeSkin builds the skin pack for skinID from tokens. Unknown ids get the
// baseline (minimal) look under their own id.
func MakeSkin(tokens BrandTokens, skinID string) SkinPack {
	s := baseSkin(tokens)
	s.ID = ResolveSkinID(skinID)

	switch s.ID {
	case SkinMinimalClean:
		s.Radii = Radii{Card: "4px", Img: "4px", Btn: "4px"}

	case SkinBoldContrasting:
		s.Fonts = Fonts{Heading: "Archivo Black", Body: "Inter"}
		s.H1 = TypeScale{Size: "44px", Weight: "900", LineHeight: "1.1"}
		s.H2 = TypeScale{Size: "28px", Weight: "800", LineHeight: "1.2"}
		s.Buttons.Caps = true
		s.Buttons.LetterSpacing = "0.06em"
		s.Buttons.Pad = "16px 32px"
		s.Extras.ButtonContrastFromBg = true
		s.Extras.SlabMode = true
		s.Extras.SlabColor = slabColor(tokens)

	case SkinGradientGlow:
		s.Radii = Radii{Card: "16px", Img: "12px", Btn: "999px"}
		s.Buttons.Variant = ButtonGradient
		s.Shadow.Card = "0 12px 32px rgba(17, 24, 39, 0.18)"
		s.Extras.GlobalGradient = true
		s.Extras.ButtonContrastFromBg = true
		g1, g2 := distinctStops(tokens.Gradient.From, tokens.Gradient.To)
		s.Pattern = &Pattern{Kind: "linear", Grad1: g1, Grad2: g2, Angle: tokens.Gradient.Angle}

	case SkinWarmEditorial:
		s.Fonts = Fonts{Heading: "Lora", Body: "Source Sans 3"}
		s.H1 = TypeScale{Size: "34px", Weight: "700", LineHeight: "1.25"}
		s.BodySize = "17px"
		s.Radii = Radii{Card: "6px", Img: "6px", Btn: "6px"}
		s.Buttons.Variant = ButtonOutline
		s.Palette.PageBg = "#faf6f0"

	case SkinMagazineSerif:
		s.Fonts = Fonts{Heading: "Playfair Display", Body: "Georgia"}
		s.H1 = TypeScale{Size: "40px", Weight: "700", LineHeight: "1.15"}
		s.H2 = TypeScale{Size: "26px", Weight: "700", LineHeight: "1.25"}
		s.Buttons.Variant = ButtonGhost
		s.Buttons.Caps = true
		s.Buttons.LetterSpacing = "0.12em"

	case SkinPastelSoft:
		s.Fonts = Fonts{Heading: "Nunito", Body: "Nunito"}
		s.Radii = Radii{Card: "20px", Img: "16px", Btn: "999px"}
		s.Palette.PageBg = Mix(tokens.Brand, white, 0.9)
		s.Palette.CardBg = Mix(tokens.Brand, white, 0.95)
		s.Shadow.Card = "0 6px 18px rgba(17, 24, 39, 0.08)"

	case SkinLuxeMono:
		s.Fonts = Fonts{Heading: "Cormorant Garamond", Body: "Inter"}
		s.H1 = TypeScale{Size: "38px", Weight: "500", LineHeight: "1.2"}
		s.Buttons.Variant = ButtonOutline
		s.Buttons.Caps = true
		s.Buttons.LetterSpacing = "0.2em"
		s.Palette = BrandTokens{
			PageBg: "#f5f3ef", SectionBg: white, Text: nearBlack, Muted: "#6b6b6b",
			Brand: nearBlack, BrandAlt: "#3a3a3a", Border: nearBlack, CardBg: white,
			ButtonText: white, Gradient: Gradient{From: nearBlack, To: "#3a3a3a", Angle: gradientAngle},
		}
		s.Extras.ColorOverrides = false

	case SkinNeoBrutalist:
		s.Fonts = Fonts{Heading: "Space Grotesk", Body: "Space Grotesk"}
		s.H1 = TypeScale{Size: "40px", Weight: "700", LineHeight: "1.1"}
		s.Border = "3px solid #000000"
		s.Shadow.Card = "6px 6px 0 #000000"
		s.Palette.Text = black
		s.Palette.Border = black
		s.Extras.ColorOverrides = false
	}
	return s
}

func baseSkin(tokens BrandTokens) SkinPack {
	return SkinPack{
		Fonts:    Fonts{Heading: "Inter", Body: "Inter"},
		Palette:  tokens,
		H1:       TypeScale{Size: "32px", Weight: "700", LineHeight: "1.2"},
		H2:       TypeScale{Size: "24px", Weight: "700", LineHeight: "1.3"},
		BodySize: "16px",
		Border:   "1px solid " + tokens.Border,
		Radii:    Radii{Card: "0px", Img: "0px", Btn: "0px"},
		Buttons:  Buttons{Variant: ButtonFilled, Pad: "14px 28px", LetterSpacing: "normal"},
		Img:      Img{Width: 600},
		Space:    Space{CardPad: "24px"},
		Shadow:   Shadow{Card: "none"},
		Extras:   Extras{ColorOverrides: true},
	}
}

// slabColor prefers the darker of brand and brandAlt when it is actually
// dark, else near-black.
func slabColor(t BrandTokens) string {
	darker := t.Brand
	if Luminance(t.BrandAlt) < Luminance(darker) {
		darker = t.BrandAlt
	}
	if IsDark(darker) {
		return darker
	}
	return nearBlack
}

// minStopDelta is the smallest luminance gap accepted between gradient stops.
const minStopDelta = 0.03

// distinctStops returns two gradient stops with a visible luminance gap,
// deriving the second from the first when needed.
func distinctStops(a, b string) (string, string) {
	d := Luminance(a) - Luminance(b)
	if a != b && (d >= minStopDelta || d <= -minStopDelta) {
		return a, b
	}
	for _, t := range []float64{0.35, 0.55, 0.75} {
		b = shiftAway(a, t)
		d = Luminance(a) - Luminance(b)
		if d >= minStopDelta || d <= -minStopDelta {
			return a, b
		}
	}
	if IsDark(a) {
		return a, white
	}
	return a, black
}
