// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MinContrast is the minimum text/background contrast ratio for normal text.
const MinContrast = 4.5

// darkThreshold splits dark from light colors by relative luminance. It is
// the point where white and black text have equal contrast.
const darkThreshold = 0.179

const (
	white     = "#ffffff"
	black     = "#000000"
	nearBlack = "#111111"
)

var (
	hexRe = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbRe = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
)

var namedColors = map[string]string{
	"white": white,
	"black": black,
	"red":   "#ff0000",
	"gray":  "#808080",
	"grey":  "#808080",
}

type rgb struct{ r, g, b float64 }

// NormalizeHex validates a 3- or 6-digit hex color and returns it as
// lowercase "#rrggbb".
func NormalizeHex(s string) (string, bool) {
	m := hexRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	h := strings.ToLower(m[1])
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	return "#" + h, true
}

// ParseColor accepts hex, rgb()/rgba() and a few color names, returning
// normalized hex. Anything else (transparent, gradients, variables) fails.
func ParseColor(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "!important")))
	if h, ok := NormalizeHex(s); ok {
		return h, true
	}
	if h, ok := namedColors[s]; ok {
		return h, true
	}
	if m := rgbRe.FindStringSubmatch(s); m != nil {
		var c [3]int
		for i := range c {
			v, _ := strconv.Atoi(m[i+1])
			if v > 255 {
				return "", false
			}
			c[i] = v
		}
		return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]), true
	}
	return "", false
}

func toRGB(hex string) rgb {
	h, ok := NormalizeHex(hex)
	if !ok {
		return rgb{}
	}
	v, _ := strconv.ParseUint(h[1:], 16, 32)
	return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}
}

func (c rgb) hex() string {
	clamp := func(f float64) int {
		return int(math.Round(math.Max(0, math.Min(255, f))))
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.r), clamp(c.g), clamp(c.b))
}

// Luminance returns the relative luminance of a hex color (sRGB,
// BT.709 weights).
func Luminance(hex string) float64 {
	c := toRGB(hex)
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.r) + 0.7152*lin(c.g) + 0.0722*lin(c.b)
}

// ContrastRatio returns (L_lighter + 0.05) / (L_darker + 0.05).
func ContrastRatio(a, b string) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// IsDark reports whether hex is on the dark side of the threshold.
func IsDark(hex string) bool {
	return Luminance(hex) < darkThreshold
}

// Mix blends a toward b by t in [0,1].
func Mix(a, b string, t float64) string {
	ca, cb := toRGB(a), toRGB(b)
	return rgb{
		ca.r + (cb.r-ca.r)*t,
		ca.g + (cb.g-ca.g)*t,
		ca.b + (cb.b-ca.b)*t,
	}.hex()
}

// ReadableOn returns white or near-black, whichever contrasts more with bg.
// On mid-tones where near-black falls short of MinContrast, pure black is
// used; one of white or black always reaches it.
func ReadableOn(bg string) string {
	w, n := ContrastRatio(white, bg), ContrastRatio(nearBlack, bg)
	switch {
	case w >= n && w >= MinContrast:
		return white
	case n > w && n >= MinContrast:
		return nearBlack
	case ContrastRatio(black, bg) >= w:
		return black
	}
	return white
}

// betterOf returns whichever of a and b contrasts more with bg.
func betterOf(a, b, bg string) string {
	if ContrastRatio(b, bg) > ContrastRatio(a, bg) {
		return b
	}
	return a
}

// shiftAway mixes hex toward white when dark and toward black when light.
func shiftAway(hex string, t float64) string {
	if IsDark(hex) {
		return Mix(hex, white, t)
	}
	return Mix(hex, black, t)
}
