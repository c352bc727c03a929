// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"mailsmith/internal/markup"
)

// refineTemperature keeps the copy pass close to deterministic.
const refineTemperature = 0.3

// maxBrandContext bounds the brand payload included in the user prompt.
const maxBrandContext = 6000

// refineSystemPrompt constrains the model to content substitution only.
var refineSystemPrompt = fmt.Sprintf(`You are an expert email copywriter working inside an MJML template.
You receive a complete MJML document and brand information. Rewrite the copy so the email speaks for the brand.

CRITICAL RULES:
1. Output ONLY the complete MJML document, starting with <mjml> and ending with </mjml>. No explanations, no markdown code fences.
2. Do not add, remove, reorder or rename any tag. Do not change any attribute except href and src.
3. You may change: text inside mj-text, mj-button and mj-raw content, href values, and src values of mj-image.
4. Keep the keyword %s exactly where it appears, in every attribute that contains it. Never replace that image or background.
5. Keep every HTML comment (for example <!-- block1: hero.txt -->) exactly as it is.
6. Do not add colors, fonts or inline styles. Styling is applied later.
7. Use the brand's language, tone and product names. Never invent prices.`, markup.HeroSentinel)

// buildRefinePrompt builds the user prompt for the copy pass.
func buildRefinePrompt(doc, emailType string, brand map[string]any, brandURL, instructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Email type: %s\n", emailType)
	if brandURL != "" {
		fmt.Fprintf(&b, "Brand homepage: %s\n", brandURL)
	}
	if ctx := stringField(brand, "imageContext"); ctx != "" {
		fmt.Fprintf(&b, "Image guidance: %s\n", ctx)
	}

	if len(brand) > 0 {
		if raw, err := json.MarshalIndent(brand, "", "  "); err == nil {
			b.WriteString("\nBrand information:\n")
			b.WriteString(truncate(string(raw), maxBrandContext))
			b.WriteString("\n")
		}
	}

	if instructions = strings.TrimSpace(instructions); instructions != "" {
		b.WriteString("\nAdditional instructions: ")
		b.WriteString(instructions)
		b.WriteString("\n")
	}

	b.WriteString("\nMJML document:\n")
	b.WriteString(doc)
	return b.String()
}

// extractMJML strips markdown code fences and surrounding chatter from the
// model's response, returning the MJML document.
func extractMJML(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code fences: ```mjml ... ``` or ``` ... ```
	if strings.HasPrefix(response, "```") {
		if nl := strings.Index(response, "\n"); nl != -1 {
			response = response[nl+1:]
		}
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
	}

	if loc := mjmlOpenRe.FindStringIndex(response); loc != nil && loc[0] > 0 {
		response = response[loc[0]:]
	}
	if end := lastIndex(mjmlCloseRe, response); end != -1 {
		response = response[:end]
	}

	return strings.TrimSpace(response)
}

// Tag patterns match on the original text so offsets stay valid for any
// input, including non-ASCII and invalid UTF-8.
var (
	mjmlOpenRe   = regexp.MustCompile(`(?i)<mjml`)
	mjmlCloseRe  = regexp.MustCompile(`(?i)</mjml>`)
	sectionEndRe = regexp.MustCompile(`(?i)</mj-section>`)
	bodyCloseRe  = regexp.MustCompile(`(?i)</mj-body>`)
)

// lastMatch returns the offsets of the last match of re in s, or nil.
func lastMatch(re *regexp.Regexp, s string) []int {
	all := re.FindAllStringIndex(s, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// lastIndex returns the end offset of the last match of re in s, or -1.
func lastIndex(re *regexp.Regexp, s string) int {
	if loc := lastMatch(re, s); loc != nil {
		return loc[1]
	}
	return -1
}

// truncate shortens s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func isRuneStart(c byte) bool { return c&0xC0 != 0x80 }

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	if bd, ok := m["brandData"].(map[string]any); ok {
		if s, ok := bd[key].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
