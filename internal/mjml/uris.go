// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mjml

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

// svgDataURIRe matches SVG data URIs in text (percent-encoded) form.
var svgDataURIRe = regexp.MustCompile(`data:image/svg\+xml(?:;charset=[A-Za-z0-9-]+)?(?:;utf8)?,([^"'\s)]+)`)

// NormalizeSVGDataURIs rewrites percent-encoded SVG data URIs as base64.
// URIs that do not decode are left alone.
func NormalizeSVGDataURIs(doc string) string {
	return svgDataURIRe.ReplaceAllStringFunc(doc, func(m string) string {
		payload := m[strings.IndexByte(m, ',')+1:]
		svg, err := url.PathUnescape(payload)
		if err != nil || !strings.Contains(svg, "<svg") {
			return m
		}
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
	})
}

var absURLRe = regexp.MustCompile(`https?://[^\s"'<>()]+`)

// trackingPrefixes and trackingParams are query keys removed by
// StripTrackingParams.
var (
	trackingPrefixes = []string{"utm_"}
	trackingParams   = map[string]bool{
		"fbclid": true, "gclid": true, "dclid": true, "msclkid": true, "yclid": true,
		"mc_cid": true, "mc_eid": true, "_hsenc": true, "_hsmi": true, "mkt_tok": true, "igshid": true,
	}
)

func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	if trackingParams[k] {
		return true
	}
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}

// StripTrackingParams removes known tracking parameters from absolute URLs.
// URLs without such parameters are left byte-identical.
func StripTrackingParams(doc string) string {
	return absURLRe.ReplaceAllStringFunc(doc, func(m string) string {
		escaped := strings.Contains(m, "&amp;")
		raw := m
		if escaped {
			raw = strings.ReplaceAll(m, "&amp;", "&")
		}
		u, err := url.Parse(raw)
		if err != nil || u.RawQuery == "" {
			return m
		}
		parts := strings.Split(u.RawQuery, "&")
		var kept []string
		for _, p := range parts {
			key, _, _ := strings.Cut(p, "=")
			if !isTrackingParam(key) {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(parts) {
			return m
		}
		u.RawQuery = strings.Join(kept, "&")
		out := u.String()
		if escaped {
			out = strings.ReplaceAll(out, "&", "&amp;")
		}
		return out
	})
}
