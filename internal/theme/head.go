// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"fmt"
	"net/url"
	"strings"
)

// systemFonts need no web font import.
var systemFonts = map[string]bool{"Georgia": true, "Arial": true, "Helvetica": true}

var serifFonts = map[string]bool{
	"Georgia": true, "Lora": true, "Playfair Display": true, "Cormorant Garamond": true,
}

// singleWeightFonts ship only a regular weight.
var singleWeightFonts = map[string]bool{"Archivo Black": true}

func fontStack(name string) string {
	if serifFonts[name] {
		return fmt.Sprintf("'%s', Georgia, 'Times New Roman', serif", name)
	}
	return fmt.Sprintf("'%s', Helvetica, Arial, sans-serif", name)
}

func fontHref(name string) string {
	weights := "400;700"
	if singleWeightFonts[name] {
		weights = "400"
	}
	return "https://fonts.googleapis.com/css2?family=" + url.QueryEscape(name) + ":wght@" + weights + "&display=swap"
}

// buildHead renders the mj-head for skin: web fonts, attribute defaults,
// the named class registry and button/card CSS.
func buildHead(s *SkinPack) string {
	p := s.Palette
	var b strings.Builder
	b.WriteString("<mj-head>\n")

	seen := map[string]bool{}
	for _, f := range []string{s.Fonts.Heading, s.Fonts.Body} {
		if seen[f] || systemFonts[f] {
			continue
		}
		seen[f] = true
		fmt.Fprintf(&b, "<mj-font name=\"%s\" href=\"%s\" />\n", f, strings.ReplaceAll(fontHref(f), "&", "&amp;"))
	}

	transform := "none"
	if s.Buttons.Caps {
		transform = "uppercase"
	}
	btnBg, btnColor, btnBorder := p.Brand, p.ButtonText, "none"
	switch s.Buttons.Variant {
	case ButtonOutline:
		btnBg, btnColor, btnBorder = "transparent", p.Brand, "2px solid "+p.Brand
	case ButtonGhost:
		btnBg, btnColor = "transparent", p.Brand
	}

	body, heading := fontStack(s.Fonts.Body), fontStack(s.Fonts.Heading)
	b.WriteString("<mj-attributes>\n")
	fmt.Fprintf(&b, "<mj-all font-family=\"%s\" />\n", body)
	fmt.Fprintf(&b, "<mj-text font-size=\"%s\" line-height=\"1.6\" color=\"%s\" />\n", s.BodySize, p.Text)
	fmt.Fprintf(&b, "<mj-button background-color=\"%s\" color=\"%s\" border=\"%s\" border-radius=\"%s\" inner-padding=\"%s\" font-weight=\"700\" text-transform=\"%s\" letter-spacing=\"%s\" />\n",
		btnBg, btnColor, btnBorder, s.Radii.Btn, s.Buttons.Pad, transform, s.Buttons.LetterSpacing)
	fmt.Fprintf(&b, "<mj-image border-radius=\"%s\" width=\"%dpx\" />\n", s.Radii.Img, s.Img.Width)
	fmt.Fprintf(&b, "<mj-divider border-color=\"%s\" border-width=\"1px\" />\n", p.Border)
	fmt.Fprintf(&b, "<mj-class name=\"h1\" font-family=\"%s\" font-size=\"%s\" font-weight=\"%s\" line-height=\"%s\" />\n", heading, s.H1.Size, s.H1.Weight, s.H1.LineHeight)
	fmt.Fprintf(&b, "<mj-class name=\"h2\" font-family=\"%s\" font-size=\"%s\" font-weight=\"%s\" line-height=\"%s\" />\n", heading, s.H2.Size, s.H2.Weight, s.H2.LineHeight)
	fmt.Fprintf(&b, "<mj-class name=\"title\" font-family=\"%s\" font-weight=\"%s\" />\n", heading, s.H2.Weight)
	fmt.Fprintf(&b, "<mj-class name=\"card\" background-color=\"%s\" border-radius=\"%s\" padding=\"%s\" />\n", p.CardBg, s.Radii.Card, s.Space.CardPad)
	fmt.Fprintf(&b, "<mj-class name=\"muted\" color=\"%s\" font-size=\"14px\" />\n", p.Muted)
	fmt.Fprintf(&b, "<mj-class name=\"btn\" border-radius=\"%s\" inner-padding=\"%s\" />\n", s.Radii.Btn, s.Buttons.Pad)
	fmt.Fprintf(&b, "<mj-class name=\"img\" border-radius=\"%s\" />\n", s.Radii.Img)
	b.WriteString("</mj-attributes>\n")

	b.WriteString("<mj-style>\n")
	fmt.Fprintf(&b, ".btn a { text-decoration: none; letter-spacing: %s; }\n", s.Buttons.LetterSpacing)
	fmt.Fprintf(&b, ".btn-outline a { border: 2px solid %s; }\n", p.Brand)
	b.WriteString(".btn-ghost a { text-decoration: underline; }\n")
	if s.Pattern != nil {
		fmt.Fprintf(&b, ".btn-gradient table, .btn-gradient td, .btn-gradient a { background-image: linear-gradient(%ddeg, %s, %s) !important; }\n",
			s.Pattern.Angle, s.Pattern.Grad1, s.Pattern.Grad2)
	}
	if s.Shadow.Card != "" && s.Shadow.Card != "none" {
		fmt.Fprintf(&b, ".card { box-shadow: %s; }\n", s.Shadow.Card)
	}
	if s.ID == SkinNeoBrutalist {
		fmt.Fprintf(&b, ".card, .btn a { border: %s; }\n", s.Border)
	}
	b.WriteString("</mj-style>\n")
	b.WriteString("</mj-head>")
	return b.String()
}
