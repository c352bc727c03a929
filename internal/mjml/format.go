// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mjml pretty-prints and compiles MJML documents.
package mjml

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mailsmith/internal/markup"
)

// Options controls the optional rewrites of FormatMJML.
type Options struct {
	// SVGToBase64 re-encodes percent-encoded SVG data URIs as base64.
	SVGToBase64 bool
	// StripTracking removes known tracking query parameters from absolute
	// URLs. Off by default since it breaks click tracking.
	StripTracking bool
}

// DefaultOptions normalizes SVG data URIs and leaves URLs alone.
var DefaultOptions = Options{SVGToBase64: true}

const indentUnit = "  "

// rawContent elements hold HTML or CSS rather than MJML children.
var rawContent = map[string]bool{
	"mj-text": true, "mj-button": true, "mj-raw": true, "mj-table": true,
	"mj-style": true, "mj-title": true, "mj-preview": true,
	"mj-navbar-link": true, "mj-social-element": true,
	"mj-accordion-title": true, "mj-accordion-text": true,
}

var errUnbalanced = errors.New("unbalanced tags")

type strategy struct {
	name   string
	format func(string) (string, error)
}

// strategies are tried in order; the last one never fails.
var strategies = []strategy{
	{"structured", formatStructured},
	{"naive", formatNaive},
}

// FormatMJML normalizes embedded URIs per opts and re-indents doc. Formatting
// falls back to simpler strategies silently; the result is stable under
// repeated formatting.
func FormatMJML(doc string, opts Options) string {
	if opts.SVGToBase64 {
		doc = NormalizeSVGDataURIs(doc)
	}
	if opts.StripTracking {
		doc = StripTrackingParams(doc)
	}
	for _, s := range strategies {
		out, err := s.format(doc)
		if err == nil {
			return out
		}
		slog.Debug("mjml formatter fallback", "strategy", s.name, "error", err)
	}
	return doc
}

// formatStructured puts every tag on its own line indented by depth and
// keeps the content of raw elements intact apart from per-line trimming.
func formatStructured(doc string) (string, error) {
	doc = strings.TrimSpace(doc)
	tags := markup.Scan(doc)
	var b strings.Builder
	var stack []string
	pos := 0

	line := func(depth int, s string) {
		if s == "" {
			return
		}
		b.WriteString(strings.Repeat(indentUnit, depth))
		b.WriteString(s)
		b.WriteByte('\n')
	}
	text := func(depth int, s string) {
		for _, l := range strings.Split(s, "\n") {
			line(depth, strings.TrimSpace(l))
		}
	}

	for k := 0; k < len(tags); k++ {
		t := tags[k]
		text(len(stack), doc[pos:t.Start])
		pos = t.End

		switch {
		case t.Comment:
			line(len(stack), t.Raw(doc))
		case t.Closing:
			if len(stack) == 0 || stack[len(stack)-1] != t.Name {
				return "", fmt.Errorf("%w: unexpected </%s>", errUnbalanced, t.Name)
			}
			stack = stack[:len(stack)-1]
			line(len(stack), collapseTag(t.Raw(doc)))
		case t.SelfClosing:
			line(len(stack), collapseTag(t.Raw(doc)))
		case rawContent[t.Name]:
			c := markup.MatchClose(tags, k)
			if c < 0 {
				return "", fmt.Errorf("%w: unclosed <%s>", errUnbalanced, t.Name)
			}
			open, inner, end := collapseTag(t.Raw(doc)), strings.TrimSpace(doc[t.End:tags[c].Start]), tags[c].Raw(doc)
			if !strings.Contains(inner, "\n") {
				line(len(stack), open+inner+end)
			} else {
				line(len(stack), open)
				text(len(stack)+1, inner)
				line(len(stack), end)
			}
			k, pos = c, tags[c].End
		default:
			line(len(stack), collapseTag(t.Raw(doc)))
			stack = append(stack, t.Name)
		}
	}
	text(len(stack), doc[pos:])
	if len(stack) != 0 {
		return "", fmt.Errorf("%w: unclosed <%s>", errUnbalanced, stack[len(stack)-1])
	}
	return b.String(), nil
}

// collapseTag folds whitespace runs outside quoted values into one space
// and drops whitespace before the closing '>'.
func collapseTag(raw string) string {
	if !strings.ContainsAny(raw, "\n\t\r") && !strings.Contains(raw, "  ") {
		return raw
	}
	var b strings.Builder
	var quote byte
	pending := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if quote == 0 && (c == ' ' || c == '\n' || c == '\t' || c == '\r') {
			pending = true
			continue
		}
		if pending && c != '>' {
			b.WriteByte(' ')
		}
		pending = false
		switch {
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		}
		b.WriteByte(c)
	}
	return b.String()
}

var (
	betweenTagsRe = regexp.MustCompile(`>\s+<`)
	openTagRe     = regexp.MustCompile(`<[A-Za-z][^>]*[^/]>|<[A-Za-z]>`)
)

// formatNaive splits at tag boundaries and indents by the net count of
// opening and closing tags per line. It cannot fail.
func formatNaive(doc string) (string, error) {
	doc = betweenTagsRe.ReplaceAllString(strings.TrimSpace(doc), "><")
	lines := strings.Split(strings.ReplaceAll(doc, "><", ">\n<"), "\n")

	var b strings.Builder
	depth := 0
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lead := 0
		if strings.HasPrefix(l, "</") {
			lead = 1
		}
		depth = max(depth-lead, 0)
		b.WriteString(strings.Repeat(indentUnit, depth))
		b.WriteString(l)
		b.WriteByte('\n')

		if strings.HasPrefix(l, "<!") {
			continue
		}
		opens := len(openTagRe.FindAllString(l, -1))
		closes := strings.Count(l, "</")
		depth = max(depth+opens-(closes-lead), 0)
	}
	return b.String(), nil
}
