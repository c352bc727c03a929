// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package links makes the hero region of a composed email clickable to
// the brand's homepage. Every rewrite is guarded so running it twice
// yields the same document.
package links

import (
	"log/slog"
	"net/url"
	"strings"

	"mailsmith/internal/markup"
)

const (
	// ClickLayerMarker precedes an injected click layer.
	ClickLayerMarker = "<!-- hero-click-layer -->"
	// ClickLayerClass is the css-class of the injected button.
	ClickLayerClass = "hero-click-layer"
	// HeroImageClass marks an image as the hero visual.
	HeroImageClass = "hero-image"
)

// NormalizeBrandURL trims raw and prepends https:// when it has no scheme.
// Values with whitespace, without a dotted host, or with a non-web scheme
// yield "".
func NormalizeBrandURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return ""
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(lower, "//"):
		s = "https:" + s
	case strings.Contains(lower, "://"):
		return ""
	default:
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || !strings.Contains(u.Hostname(), ".") {
		return ""
	}
	return s
}

// InjectBrandLinks normalizes every mj-image to open/close form and, when
// rawBrandURL is usable, links the hero visual to it:
//   - images whose src carries the hero sentinel get href set
//   - sections and heroes with a sentinel background-url get a transparent
//     full-width click-layer button as their first child
//   - images with the hero-image class get href set
//
// Only if none of those apply does the first image of the first section
// receive an href, and only if it has none.
func InjectBrandLinks(doc, rawBrandURL string) string {
	doc = normalizeImages(doc)

	brandURL := NormalizeBrandURL(rawBrandURL)
	if brandURL == "" {
		if strings.TrimSpace(rawBrandURL) != "" {
			slog.Debug("brand url unusable, links unchanged", "raw", rawBrandURL)
		}
		return doc
	}

	doc, imagesLinked := linkHeroImages(doc, brandURL)
	doc, sectionsLinked := addClickLayers(doc, brandURL)
	if imagesLinked || sectionsLinked {
		return doc
	}
	return linkFirstImage(doc, brandURL)
}

// normalizeImages rewrites self-closing <mj-image ... /> as
// <mj-image ...></mj-image>.
func normalizeImages(doc string) string {
	tags := markup.Scan(doc)
	ed := markup.NewEditor(doc)
	for _, t := range tags {
		if t.Name == "mj-image" && t.SelfClosing {
			ed.Replace(t.Start, t.End, markup.Render(t.Name, t.Attrs, false)+"</mj-image>")
		}
	}
	return ed.String()
}

// linkHeroImages sets href on sentinel and hero-class images.
func linkHeroImages(doc, brandURL string) (string, bool) {
	found := false
	ed := markup.NewEditor(doc)
	for _, t := range markup.Scan(doc) {
		if t.Name != "mj-image" || t.Closing || t.Comment {
			continue
		}
		src, _ := markup.Attr(t.Attrs, "src")
		if !strings.Contains(strings.ToUpper(src), markup.HeroSentinel) && !markup.HasClass(t.Attrs, HeroImageClass) {
			continue
		}
		found = true
		if href, ok := markup.Attr(t.Attrs, "href"); ok && href == brandURL {
			continue
		}
		ed.Replace(t.Start, t.End, markup.Render(t.Name, markup.SetAttr(t.Attrs, "href", brandURL), t.SelfClosing))
	}
	return ed.String(), found
}

// addClickLayers injects a click layer into sentinel-background sections.
func addClickLayers(doc, brandURL string) (string, bool) {
	found := false
	tags := markup.Scan(doc)
	ed := markup.NewEditor(doc)
	for i, t := range tags {
		if !t.Opening() || (t.Name != "mj-section" && t.Name != "mj-hero") {
			continue
		}
		bg, _ := markup.Attr(t.Attrs, "background-url")
		if !strings.Contains(strings.ToUpper(bg), markup.HeroSentinel) {
			continue
		}
		found = true
		end := len(doc)
		if c := markup.MatchClose(tags, i); c >= 0 {
			end = tags[c].Start
		}
		inner := doc[t.End:end]
		if strings.Contains(inner, ClickLayerMarker) || strings.Contains(inner, `css-class="`+ClickLayerClass+`"`) {
			continue
		}
		ed.Insert(t.End, "\n"+clickLayer(t.Name, brandURL))
	}
	return ed.String(), found
}

func clickLayer(container, brandURL string) string {
	button := markup.Render("mj-button", strings.Join([]string{
		`href="` + strings.ReplaceAll(brandURL, `"`, "&quot;") + `"`,
		`css-class="` + ClickLayerClass + `"`,
		`background-color="transparent"`,
		`color="transparent"`,
		`border="none"`,
		`width="100%"`,
		`height="100%"`,
		`padding="0"`,
		`inner-padding="0"`,
	}, " "), false) + "&nbsp;</mj-button>"
	if container == "mj-section" {
		return ClickLayerMarker + "\n<mj-column width=\"100%\">" + button + "</mj-column>"
	}
	return ClickLayerMarker + "\n" + button
}

// linkFirstImage gives the first image of the first section an href when
// it has none.
func linkFirstImage(doc, brandURL string) string {
	tags := markup.Scan(doc)
	for i, t := range tags {
		if !t.Opening() || t.Name != "mj-section" {
			continue
		}
		end := markup.MatchClose(tags, i)
		if end < 0 {
			end = len(tags)
		}
		for _, img := range tags[i+1 : end] {
			if img.Name != "mj-image" || img.Closing || img.Comment {
				continue
			}
			if _, ok := markup.Attr(img.Attrs, "href"); ok {
				return doc
			}
			ed := markup.NewEditor(doc)
			ed.Replace(img.Start, img.End, markup.Render(img.Name, markup.SetAttr(img.Attrs, "href", brandURL), img.SelfClosing))
			return ed.String()
		}
		return doc
	}
	return doc
}
