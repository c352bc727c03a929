// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mjml

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mjmlgo "github.com/Boostport/mjml-go"
)

// CompileError reports MJML validation problems found while compiling.
type CompileError struct {
	Message string
	Details []string
}

func (e *CompileError) Error() string {
	if len(e.Details) == 0 {
		return "mjml: " + e.Message
	}
	return "mjml: " + e.Message + ": " + strings.Join(e.Details, "; ")
}

// ToHTML compiles doc to email HTML.
func ToHTML(ctx context.Context, doc string, minify bool) (string, error) {
	html, err := mjmlgo.ToHTML(ctx, doc, mjmlgo.WithMinify(minify))
	if err != nil {
		var mErr mjmlgo.Error
		if errors.As(err, &mErr) {
			ce := &CompileError{Message: mErr.Message}
			for _, d := range mErr.Details {
				ce.Details = append(ce.Details, fmt.Sprintf("line %d <%s>: %s", d.Line, d.TagName, d.Message))
			}
			return "", ce
		}
		return "", fmt.Errorf("mjml compile: %w", err)
	}
	return html, nil
}
