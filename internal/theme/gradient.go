// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"encoding/base64"
	"fmt"
	"math"
)

// GradientSVG renders a two-stop linear gradient as an SVG document. The
// angle follows CSS: 0 points up, 90 points right.
func GradientSVG(from, to string, angle int) string {
	rad := float64(angle) * math.Pi / 180
	dx, dy := math.Sin(rad)*50, -math.Cos(rad)*50
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="600" height="1200" viewBox="0 0 600 1200" preserveAspectRatio="none">`+
			`<defs><linearGradient id="g" x1="%.2f%%" y1="%.2f%%" x2="%.2f%%" y2="%.2f%%">`+
			`<stop offset="0%%" stop-color="%s"/><stop offset="100%%" stop-color="%s"/>`+
			`</linearGradient></defs><rect width="600" height="1200" fill="url(#g)"/></svg>`,
		50-dx, 50-dy, 50+dx, 50+dy, from, to)
}

// GradientDataURI returns the gradient as a base64 SVG data URI. It is
// used directly as a background-url value, never wrapped in CSS url().
func GradientDataURI(from, to string, angle int) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(GradientSVG(from, to, angle)))
}

// gradientMid approximates the color behind content on a gradient.
func gradientMid(from, to string) string {
	return Mix(from, to, 0.5)
}
