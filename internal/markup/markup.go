// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markup provides a small tag scanner for MJML documents. It finds
// tags with their byte offsets and raw attribute text so callers can rewrite
// individual attributes while copying everything else byte for byte.
// It is not a parser: mismatched tags are reported as-is and callers decide
// how much structure to trust.
package markup

import (
	"regexp"
	"strings"
)

// HeroSentinel marks the dynamically replaced hero visual. Any tag whose
// attributes contain it (case-insensitive) is hero-locked.
const HeroSentinel = "CUSTOMHEROIMAGE"

// HeroLockClass is an explicit css-class marker with the same effect.
const HeroLockClass = "hero-locked"

// Tag is one tag occurrence in a document.
type Tag struct {
	Start, End  int    // offsets of the full "<...>" text
	Name        string // lowercased, without the leading '/'
	Attrs       string // raw attribute text, trailing '/' removed
	Closing     bool
	SelfClosing bool
	Comment     bool // comments, doctypes and processing instructions
}

// Raw returns the tag's original text.
func (t Tag) Raw(doc string) string {
	return doc[t.Start:t.End]
}

// Opening reports whether the tag opens an element that has content.
func (t Tag) Opening() bool {
	return !t.Closing && !t.SelfClosing && !t.Comment
}

// Render rebuilds an opening or self-closing tag from name and attrs.
func Render(name, attrs string, selfClosing bool) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	if attrs = strings.TrimRight(attrs, " \t\r\n"); attrs != "" {
		if !isSpace(attrs[0]) {
			b.WriteByte(' ')
		}
		b.WriteString(attrs)
	}
	if selfClosing {
		b.WriteString(" /")
	}
	b.WriteByte('>')
	return b.String()
}

// Scan returns every tag in doc in document order.
func Scan(doc string) []Tag {
	var tags []Tag
	i := 0
	for i < len(doc) {
		lt := strings.IndexByte(doc[i:], '<')
		if lt < 0 {
			break
		}
		start := i + lt

		if strings.HasPrefix(doc[start:], "<!--") {
			end := strings.Index(doc[start+4:], "-->")
			if end < 0 {
				break
			}
			stop := start + 4 + end + 3
			tags = append(tags, Tag{Start: start, End: stop, Comment: true})
			i = stop
			continue
		}
		if strings.HasPrefix(doc[start:], "<!") || strings.HasPrefix(doc[start:], "<?") {
			gt := strings.IndexByte(doc[start:], '>')
			if gt < 0 {
				break
			}
			tags = append(tags, Tag{Start: start, End: start + gt + 1, Comment: true})
			i = start + gt + 1
			continue
		}

		j := start + 1
		closing := false
		if j < len(doc) && doc[j] == '/' {
			closing = true
			j++
		}
		nameStart := j
		for j < len(doc) && isNameByte(doc[j]) {
			j++
		}
		if j == nameStart {
			i = start + 1
			continue
		}
		name := strings.ToLower(doc[nameStart:j])

		gt := findTagEnd(doc, j)
		if gt < 0 {
			break
		}
		attrs := doc[j:gt]
		selfClosing := false
		if trimmed := strings.TrimRight(attrs, " \t\r\n"); strings.HasSuffix(trimmed, "/") {
			selfClosing = true
			attrs = strings.TrimSuffix(trimmed, "/")
		}
		tags = append(tags, Tag{
			Start:       start,
			End:         gt + 1,
			Name:        name,
			Attrs:       attrs,
			Closing:     closing,
			SelfClosing: selfClosing,
		})
		i = gt + 1
	}
	return tags
}

// MatchClose returns the index of the tag closing tags[open], or -1.
func MatchClose(tags []Tag, open int) int {
	name := tags[open].Name
	depth := 0
	for k := open; k < len(tags); k++ {
		t := tags[k]
		if t.Comment || t.Name != name {
			continue
		}
		switch {
		case t.Closing:
			depth--
			if depth == 0 {
				return k
			}
		case !t.SelfClosing:
			depth++
		}
	}
	return -1
}

// findTagEnd returns the offset of the '>' ending the tag, skipping quoted
// attribute values.
func findTagEnd(doc string, from int) int {
	var quote byte
	for k := from; k < len(doc); k++ {
		c := doc[k]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return k
		}
	}
	return -1
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// attrRe matches name="value" and name='value' pairs.
var attrRe = regexp.MustCompile(`([A-Za-z_:][-A-Za-z0-9_:.]*)\s*=\s*("[^"]*"|'[^']*')`)

// Attr returns the unquoted value of the named attribute.
func Attr(attrs, name string) (string, bool) {
	for _, m := range attrRe.FindAllStringSubmatch(attrs, -1) {
		if strings.EqualFold(m[1], name) {
			return m[2][1 : len(m[2])-1], true
		}
	}
	return "", false
}

// SetAttr sets name to value, replacing the first existing occurrence in
// place or appending it.
func SetAttr(attrs, name, value string) string {
	value = strings.ReplaceAll(value, `"`, "&quot;")
	for _, loc := range attrRe.FindAllStringSubmatchIndex(attrs, -1) {
		if strings.EqualFold(attrs[loc[2]:loc[3]], name) {
			return attrs[:loc[0]] + name + `="` + value + `"` + attrs[loc[1]:]
		}
	}
	trimmed := strings.TrimRight(attrs, " \t\r\n")
	return trimmed + " " + name + `="` + value + `"`
}

// RemoveAttr deletes every occurrence of the named attribute.
func RemoveAttr(attrs, name string) string {
	locs := attrRe.FindAllStringSubmatchIndex(attrs, -1)
	for k := len(locs) - 1; k >= 0; k-- {
		loc := locs[k]
		if !strings.EqualFold(attrs[loc[2]:loc[3]], name) {
			continue
		}
		start := loc[0]
		for start > 0 && isSpace(attrs[start-1]) {
			start--
		}
		attrs = attrs[:start] + attrs[loc[1]:]
	}
	return attrs
}

// HasClass reports whether the css-class attribute contains class.
func HasClass(attrs, class string) bool {
	v, ok := Attr(attrs, "css-class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends classes missing from css-class.
func AddClass(attrs string, classes ...string) string {
	v, _ := Attr(attrs, "css-class")
	have := strings.Fields(v)
	changed := false
	for _, c := range classes {
		if !HasClass(attrs, c) && !contains(have, c) {
			have = append(have, c)
			changed = true
		}
	}
	if !changed {
		return attrs
	}
	return SetAttr(attrs, "css-class", strings.Join(have, " "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsLocked reports whether attrs mark a hero-locked region.
func IsLocked(attrs string) bool {
	return strings.Contains(strings.ToUpper(attrs), HeroSentinel) ||
		strings.Contains(strings.ToLower(attrs), HeroLockClass)
}

// HasBackgroundURL reports whether the tag carries a background image,
// either as a background-url attribute or a url(...) in its inline style.
func HasBackgroundURL(attrs string) bool {
	if v, ok := Attr(attrs, "background-url"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if v, ok := Attr(attrs, "style"); ok && strings.Contains(strings.ToLower(v), "url(") {
		return true
	}
	return false
}

// Editor assembles a rewritten document from an original one. Replacements
// must be applied in increasing offset order.
type Editor struct {
	src  string
	b    strings.Builder
	last int
}

// NewEditor starts an edit of src.
func NewEditor(src string) *Editor {
	e := &Editor{src: src}
	e.b.Grow(len(src) + len(src)/8)
	return e
}

// Replace substitutes src[start:end] with s.
func (e *Editor) Replace(start, end int, s string) {
	if start < e.last {
		return
	}
	e.b.WriteString(e.src[e.last:start])
	e.b.WriteString(s)
	e.last = end
}

// Insert writes s at offset pos.
func (e *Editor) Insert(pos int, s string) {
	e.Replace(pos, pos, s)
}

// String returns the edited document.
func (e *Editor) String() string {
	e.b.WriteString(e.src[e.last:])
	e.last = len(e.src)
	return e.b.String()
}
