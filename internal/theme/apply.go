// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package theme builds brand tokens and skin packs and applies them to
// composed MJML documents. Rewrites work tag by tag on the scanned document:
// a hero-locked tag (sentinel or hero-locked class in its attributes) is
// checked first and its whole region is copied through unchanged.
package theme

import (
	"regexp"
	"sort"
	"strings"

	"mailsmith/internal/markup"
)

const (
	// GlobalGradientClass marks the wrapper carrying the page gradient.
	GlobalGradientClass = "global-gradient"
	// ButtonClass is added to every themed button.
	ButtonClass = "btn"

	clickLayerClass = "hero-click-layer"
)

// Placeholder colors left in fragments by template authors.
const (
	legacyBrand = iota + 1
	legacyAlt
)

var legacyHex = map[string]int{
	"#ffd700": legacyAlt,
	"#ffcc00": legacyAlt,
	"#ffeb3b": legacyAlt,
	"#fdd835": legacyAlt,
	"#ffa500": legacyBrand,
	"#ff9900": legacyBrand,
	"#ff6600": legacyBrand,
	"#ff5722": legacyBrand,
	"#ff0000": legacyBrand,
	"#f44336": legacyBrand,
	"#e53935": legacyBrand,
}

var hexLiteralRe = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)

// containers establish a background for their descendants.
var containers = map[string]bool{
	"mj-body": true, "mj-wrapper": true, "mj-section": true,
	"mj-hero": true, "mj-column": true, "mj-group": true,
}

// ApplyTheme resolves skinID, builds tokens from payload and applies the
// resulting skin to doc. It returns the themed document and the skin used.
func ApplyTheme(doc string, payload map[string]any, skinID string) (string, SkinPack) {
	skin := MakeSkin(BuildBrandTokens(payload), skinID)
	return Apply(doc, &skin), skin
}

// Apply themes doc with s: head, body background, sections with their text
// and buttons, then skin-specific touches.
func Apply(doc string, s *SkinPack) string {
	doc = replaceHead(doc, s)
	doc = applyBodyBackground(doc, s)
	doc = applySections(doc, s)
	if s.ID == SkinBoldContrasting {
		doc = applyBoldTouches(doc, s)
	}
	return doc
}

type edit struct {
	start, end int
	text       string
}

func applyEdits(doc string, edits []edit) string {
	if len(edits) == 0 {
		return doc
	}
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end < edits[j].end
	})
	ed := markup.NewEditor(doc)
	for _, e := range edits {
		ed.Replace(e.start, e.end, e.text)
	}
	return ed.String()
}

func retag(t markup.Tag, attrs string) edit {
	return edit{t.Start, t.End, markup.Render(t.Name, attrs, t.SelfClosing)}
}

// skipRegion returns the index of the tag ending the region opened at k.
func skipRegion(tags []markup.Tag, k int) int {
	if !tags[k].Opening() {
		return k
	}
	if c := markup.MatchClose(tags, k); c >= 0 {
		return c
	}
	return k
}

// replaceHead drops every mj-head and inserts a fresh one after <mjml>.
func replaceHead(doc string, s *SkinPack) string {
	tags := markup.Scan(doc)
	var edits []edit
	rootEnd := -1
	for k := 0; k < len(tags); k++ {
		t := tags[k]
		switch {
		case t.Name == "mjml" && t.Opening() && rootEnd < 0:
			rootEnd = t.End
		case t.Name == "mj-head" && !t.Closing:
			end := t.End
			if c := skipRegion(tags, k); c != k {
				end = tags[c].End
				k = c
			}
			if end < len(doc) && doc[end] == '\n' {
				end++
			}
			edits = append(edits, edit{t.Start, end, ""})
		}
	}
	head := buildHead(s)
	if rootEnd >= 0 {
		edits = append(edits, edit{rootEnd, rootEnd, "\n" + head})
	} else {
		edits = append(edits, edit{0, 0, head + "\n"})
	}
	return applyEdits(doc, edits)
}

// baseBackground is the color content sits on before any section color.
func baseBackground(s *SkinPack) string {
	if s.Extras.GlobalGradient && s.Pattern != nil {
		return gradientMid(s.Pattern.Grad1, s.Pattern.Grad2)
	}
	return s.Palette.PageBg
}

// applyBodyBackground colors mj-body and, for gradient skins, wraps the
// body content in a single gradient wrapper. Nested unlocked wrappers are
// flattened into it since MJML does not allow wrappers inside wrappers;
// without a gradient, a leftover gradient wrapper is removed.
func applyBodyBackground(doc string, s *SkinPack) string {
	tags := markup.Scan(doc)
	bodyIdx := -1
	for k, t := range tags {
		if t.Name == "mj-body" && t.Opening() {
			bodyIdx = k
			break
		}
	}
	if bodyIdx < 0 || markup.IsLocked(tags[bodyIdx].Attrs) {
		return doc
	}
	body := tags[bodyIdx]
	closeIdx := markup.MatchClose(tags, bodyIdx)
	if closeIdx < 0 {
		closeIdx = len(tags)
	}

	gradient := s.Extras.GlobalGradient && s.Pattern != nil
	edits := []edit{retag(body, markup.SetAttr(body.Attrs, "background-color", baseBackground(s)))}

	existing := false
	for k := bodyIdx + 1; k < closeIdx; k++ {
		t := tags[k]
		if t.Comment || t.Closing {
			continue
		}
		if markup.IsLocked(t.Attrs) {
			k = skipRegion(tags, k)
			continue
		}
		if t.Name != "mj-wrapper" || t.SelfClosing {
			continue
		}
		global := markup.HasClass(t.Attrs, GlobalGradientClass)
		if gradient && global && !existing {
			existing = true
			edits = append(edits, retag(t, gradientWrapperAttrs(t.Attrs, s)))
			continue
		}
		if !gradient && !global {
			continue
		}
		edits = append(edits, edit{t.Start, t.End, ""})
		if c := markup.MatchClose(tags, k); c >= 0 {
			edits = append(edits, edit{tags[c].Start, tags[c].End, ""})
		}
	}

	if gradient && !existing && closeIdx < len(tags) {
		open := markup.Render("mj-wrapper", gradientWrapperAttrs("", s), false)
		edits = append(edits,
			edit{body.End, body.End, "\n" + open},
			edit{tags[closeIdx].Start, tags[closeIdx].Start, "</mj-wrapper>\n"},
		)
	}
	return applyEdits(doc, edits)
}

func gradientWrapperAttrs(attrs string, s *SkinPack) string {
	attrs = markup.AddClass(attrs, GlobalGradientClass)
	attrs = markup.SetAttr(attrs, "background-url", GradientDataURI(s.Pattern.Grad1, s.Pattern.Grad2, s.Pattern.Angle))
	attrs = markup.SetAttr(attrs, "background-size", "cover")
	attrs = markup.SetAttr(attrs, "background-repeat", "no-repeat")
	attrs = markup.SetAttr(attrs, "background-color", baseBackground(s))
	return markup.SetAttr(attrs, "padding", "0px")
}

type frame struct {
	name string
	bg   string
}

// applySections walks the body keeping a stack of effective backgrounds,
// resolving section backgrounds and recoloring text and buttons against
// the background they sit on.
func applySections(doc string, s *SkinPack) string {
	exempt := s.Exempt()
	tags := markup.Scan(doc)
	stack := []frame{{bg: baseBackground(s)}}
	var edits []edit

	for k := 0; k < len(tags); k++ {
		t := tags[k]
		if t.Comment {
			continue
		}
		if t.Closing {
			if containers[t.Name] {
				stack = popTo(stack, t.Name)
			}
			continue
		}
		if markup.IsLocked(t.Attrs) {
			k = skipRegion(tags, k)
			continue
		}
		if t.Name == "mj-head" || t.Name == "mj-raw" {
			k = skipRegion(tags, k)
			continue
		}

		attrs := t.Attrs
		if !exempt {
			attrs = swapLegacy(attrs, &s.Palette)
		}
		bg := stack[len(stack)-1].bg
		push := ""

		switch t.Name {
		case "mj-body":
			push = baseBackground(s)
		case "mj-wrapper", "mj-section", "mj-hero":
			if t.Name == "mj-wrapper" && markup.HasClass(attrs, GlobalGradientClass) {
				push = bg
				break
			}
			attrs, push = themeSection(attrs, bg, s)
		case "mj-column", "mj-group":
			push = bg
			if c, ok := colorAttr(attrs, "background-color"); ok {
				push = c
			}
		case "mj-text":
			if !exempt {
				attrs = themeText(attrs, bg, &s.Palette)
				if c := skipRegion(tags, k); c > k {
					edits = append(edits, themeInline(tags[k+1:c], bg, &s.Palette)...)
					k = c
				}
			} else {
				k = skipRegion(tags, k)
			}
		case "mj-button":
			attrs = themeButton(attrs, bg, s)
			k = skipRegion(tags, k)
		}

		if attrs != t.Attrs {
			edits = append(edits, retag(t, attrs))
		}
		if push != "" && !t.SelfClosing {
			stack = append(stack, frame{name: t.Name, bg: push})
		}
	}
	return applyEdits(doc, edits)
}

func popTo(stack []frame, name string) []frame {
	for i := len(stack) - 1; i > 0; i-- {
		if stack[i].name == name {
			return stack[:i]
		}
	}
	return stack
}

// themeSection resolves a section's background and returns the color its
// content sits on. Sections with a background image keep their attributes.
func themeSection(attrs, parentBg string, s *SkinPack) (string, string) {
	own, hasOwn := colorAttr(attrs, "background-color")
	_, present := markup.Attr(attrs, "background-color")
	switch {
	case markup.HasBackgroundURL(attrs):
		if hasOwn {
			return attrs, own
		}
		return attrs, parentBg
	case s.Extras.GlobalGradient:
		return markup.RemoveAttr(attrs, "background-color"), parentBg
	case hasOwn:
		return attrs, own
	case present:
		return attrs, parentBg
	case s.Extras.SlabMode && s.Extras.SlabColor != "":
		return markup.SetAttr(attrs, "background-color", s.Extras.SlabColor), s.Extras.SlabColor
	default:
		return markup.SetAttr(attrs, "background-color", s.Palette.SectionBg), s.Palette.SectionBg
	}
}

// themeText keeps an mj-text color that already reads on bg and replaces
// it otherwise. Without a color attribute the head default applies.
func themeText(attrs, bg string, p *BrandTokens) string {
	cur, ok := colorAttr(attrs, "color")
	if _, present := markup.Attr(attrs, "color"); !present {
		cur, ok = p.Text, true
		if mc, _ := markup.Attr(attrs, "mj-class"); strings.Contains(" "+mc+" ", " muted ") {
			cur = p.Muted
		}
	}
	if ok && ContrastRatio(cur, bg) >= MinContrast {
		return attrs
	}
	return markup.SetAttr(attrs, "color", ReadableOn(bg))
}

// themeInline fixes color attributes and inline color declarations on the
// HTML inside an mj-text.
func themeInline(tags []markup.Tag, bg string, p *BrandTokens) []edit {
	var edits []edit
	for k := 0; k < len(tags); k++ {
		t := tags[k]
		if t.Comment || t.Closing {
			continue
		}
		if markup.IsLocked(t.Attrs) {
			if c := markup.MatchClose(tags, k); c >= 0 && t.Opening() {
				k = c
			}
			continue
		}
		attrs := swapLegacy(t.Attrs, p)
		if _, present := markup.Attr(attrs, "color"); present {
			if c, ok := colorAttr(attrs, "color"); !ok || ContrastRatio(c, bg) < MinContrast {
				attrs = markup.SetAttr(attrs, "color", ReadableOn(bg))
			}
		}
		if style, ok := markup.Attr(attrs, "style"); ok {
			if fixed := fixStyleColor(style, bg); fixed != style {
				attrs = markup.SetAttr(attrs, "style", fixed)
			}
		}
		if attrs != t.Attrs {
			edits = append(edits, retag(t, attrs))
		}
	}
	return edits
}

// fixStyleColor rewrites a failing "color:" declaration in an inline style.
func fixStyleColor(style, bg string) string {
	decls := strings.Split(style, ";")
	changed := false
	for i, d := range decls {
		name, value, ok := strings.Cut(d, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "color") {
			continue
		}
		if c, ok := ParseColor(value); ok && ContrastRatio(c, bg) >= MinContrast {
			continue
		}
		decls[i] = name + ":" + ReadableOn(bg)
		changed = true
	}
	if !changed {
		return style
	}
	return strings.Join(decls, ";")
}

// themeButton tags a button with the shared classes and, when the skin
// allows color overrides, recolors it for its variant.
func themeButton(attrs, bg string, s *SkinPack) string {
	if markup.HasClass(attrs, clickLayerClass) {
		return attrs
	}
	variant := s.Buttons.Variant
	attrs = markup.AddClass(attrs, ButtonClass, ButtonClass+"-"+variant)
	if !s.Extras.ColorOverrides {
		return attrs
	}

	p := &s.Palette
	switch variant {
	case ButtonOutline, ButtonGhost:
		fg := betterOf(p.Brand, p.BrandAlt, bg)
		if ContrastRatio(fg, bg) < MinContrast {
			fg = ReadableOn(bg)
		}
		border := "none"
		if variant == ButtonOutline {
			border = "2px solid " + fg
		}
		attrs = markup.SetAttr(attrs, "background-color", "transparent")
		attrs = markup.SetAttr(attrs, "color", fg)
		attrs = markup.SetAttr(attrs, "border", border)
	default:
		fill := betterOf(p.Brand, p.BrandAlt, bg)
		if s.Extras.ButtonContrastFromBg && ContrastRatio(fill, bg) < 3 {
			fill = ReadableOn(bg)
		}
		attrs = markup.SetAttr(attrs, "background-color", fill)
		attrs = markup.SetAttr(attrs, "color", ReadableOn(fill))
		attrs = markup.SetAttr(attrs, "border", "none")
	}
	attrs = markup.SetAttr(attrs, "border-radius", s.Radii.Btn)
	return markup.SetAttr(attrs, "inner-padding", s.Buttons.Pad)
}

// swapLegacy replaces known placeholder hex colors with brand colors.
func swapLegacy(attrs string, p *BrandTokens) string {
	if !strings.Contains(attrs, "#") {
		return attrs
	}
	return hexLiteralRe.ReplaceAllStringFunc(attrs, func(m string) string {
		h, _ := NormalizeHex(m)
		switch legacyHex[h] {
		case legacyBrand:
			return p.Brand
		case legacyAlt:
			return p.BrandAlt
		}
		return m
	})
}

func colorAttr(attrs, name string) (string, bool) {
	v, ok := markup.Attr(attrs, name)
	if !ok {
		return "", false
	}
	return ParseColor(v)
}

// applyBoldTouches gives the first heading block large heavy type and
// makes every unlocked image flush.
func applyBoldTouches(doc string, s *SkinPack) string {
	tags := markup.Scan(doc)
	var edits []edit
	headingDone := false
	for k := 0; k < len(tags); k++ {
		t := tags[k]
		if t.Comment || t.Closing {
			continue
		}
		if markup.IsLocked(t.Attrs) || t.Name == "mj-head" || t.Name == "mj-raw" {
			k = skipRegion(tags, k)
			continue
		}
		switch t.Name {
		case "mj-text":
			c := skipRegion(tags, k)
			if !headingDone && isHeading(doc, t, tags[c]) {
				headingDone = true
				attrs := markup.SetAttr(t.Attrs, "font-family", fontStack(s.Fonts.Heading))
				attrs = markup.SetAttr(attrs, "font-size", s.H1.Size)
				attrs = markup.SetAttr(attrs, "font-weight", s.H1.Weight)
				attrs = markup.SetAttr(attrs, "line-height", s.H1.LineHeight)
				attrs = markup.SetAttr(attrs, "text-transform", "uppercase")
				if attrs != t.Attrs {
					edits = append(edits, retag(t, attrs))
				}
			}
			k = c
		case "mj-image":
			if attrs := markup.SetAttr(t.Attrs, "padding", "0px"); attrs != t.Attrs {
				edits = append(edits, retag(t, attrs))
			}
		}
	}
	return applyEdits(doc, edits)
}

var headingRe = regexp.MustCompile(`(?i)<h[12][\s>]`)

func isHeading(doc string, open, close markup.Tag) bool {
	if mc, ok := markup.Attr(open.Attrs, "mj-class"); ok {
		for _, c := range strings.Fields(mc) {
			if c == "h1" || c == "h2" || c == "title" {
				return true
			}
		}
	}
	if close.Start <= open.End {
		return false
	}
	return headingRe.MatchString(doc[open.End:close.Start])
}
