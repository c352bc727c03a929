// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package layout selects block fragments for an email and composes them
// into the base MJML skeleton. Block and divider choices are uniformly
// random for variety; pass a seeded *rand.Rand for reproducible layouts.
package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"golang.org/x/sync/errgroup"

	"mailsmith/internal/blocks"
)

// ProductSectionToken is the placeholder replaced by a rendered product section.
const ProductSectionToken = "[[PRODUCT_SECTION]]"

// productMarkerName is recorded in the block2 marker of product layouts.
const productMarkerName = "product-section"

// ErrConfiguration reports that the fragment library cannot produce any
// layout for an email type / aesthetic pair.
var ErrConfiguration = errors.New("layout: configuration error")

// ConfigurationError names the slot that has no fragments.
type ConfigurationError struct {
	EmailType string
	Aesthetic string
	Slot      string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("layout: no %s fragments for %s/%s: %v", e.Slot, e.EmailType, e.Aesthetic, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Layout is the set of fragments chosen for one email. Block2 is nil if and
// only if UseProductSectionToken is set.
type Layout struct {
	LayoutID               string  `json:"layoutId"`
	Block1                 string  `json:"block1"`
	Block2                 *string `json:"block2"`
	Block3                 string  `json:"block3"`
	UseProductSectionToken bool    `json:"useProductSectionToken"`
	EmailType              string  `json:"emailType"`
	Aesthetic              string  `json:"aesthetic"`
}

// IsProductType reports whether emailType carries a dynamic product section.
func IsProductType(emailType string) bool {
	switch blocks.EmailTypeDir(emailType) {
	case "Promotion", "Productgrid":
		return true
	}
	return false
}

// Marker returns the traceability comment placed before a fragment.
func Marker(slot, filename string) string {
	return fmt.Sprintf("<!-- %s: %s -->", slot, filename)
}

// Markers returns the traceability comments a composed document must carry.
func (l *Layout) Markers() []string {
	m := []string{Marker(blocks.SlotBlock1, l.Block1)}
	if l.UseProductSectionToken {
		m = append(m, Marker(blocks.SlotBlock2, productMarkerName))
	} else if l.Block2 != nil {
		m = append(m, Marker(blocks.SlotBlock2, *l.Block2))
	}
	return append(m, Marker(blocks.SlotBlock3, l.Block3))
}

// Composer builds layouts from a fragment repository.
type Composer struct {
	repo *blocks.Repository
}

// NewComposer creates a composer over repo.
func NewComposer(repo *blocks.Repository) *Composer {
	return &Composer{repo: repo}
}

// ChooseLayout picks one fragment per slot. block1 and block3 are required;
// non-product types also require block2. Product types skip block2 and use
// the product section placeholder instead. rnd may be nil.
func (c *Composer) ChooseLayout(ctx context.Context, emailType, aesthetic string, rnd *rand.Rand) (*Layout, error) {
	l := &Layout{
		EmailType:              emailType,
		Aesthetic:              blocks.NormalizeAesthetic(aesthetic),
		UseProductSectionToken: IsProductType(emailType),
	}

	pickSlot := func(slot string) (string, error) {
		files, err := c.repo.ListBlockFiles(ctx, emailType, aesthetic, slot)
		if err != nil {
			if errors.Is(err, blocks.ErrNotFound) {
				return "", &ConfigurationError{EmailType: emailType, Aesthetic: aesthetic, Slot: slot, Err: err}
			}
			return "", fmt.Errorf("list %s: %w", slot, err)
		}
		return files[intN(rnd, len(files))], nil
	}

	var err error
	if l.Block1, err = pickSlot(blocks.SlotBlock1); err != nil {
		return nil, err
	}
	if !l.UseProductSectionToken {
		b2, err := pickSlot(blocks.SlotBlock2)
		if err != nil {
			return nil, err
		}
		l.Block2 = &b2
	}
	if l.Block3, err = pickSlot(blocks.SlotBlock3); err != nil {
		return nil, err
	}

	l.LayoutID = fmt.Sprintf("%s-%s-%08x", strings.ToLower(blocks.EmailTypeDir(emailType)), l.Aesthetic, uint32N(rnd))
	return l, nil
}

// ComposeBaseMJML reads the layout's fragments and up to two random
// dividers, and wraps them in a minimal <mjml><mj-body> envelope. Each
// fragment is preceded by its traceability marker.
func (c *Composer) ComposeBaseMJML(ctx context.Context, l *Layout, rnd *rand.Rand) (string, error) {
	dividers := c.pickDividers(ctx, l, rnd)

	var block1, block2, block3 string
	dividerText := make([]string, len(dividers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		block1, err = c.repo.ReadBlockFile(gctx, l.EmailType, l.Aesthetic, blocks.SlotBlock1, l.Block1)
		return err
	})
	if !l.UseProductSectionToken && l.Block2 != nil {
		g.Go(func() error {
			var err error
			block2, err = c.repo.ReadBlockFile(gctx, l.EmailType, l.Aesthetic, blocks.SlotBlock2, *l.Block2)
			return err
		})
	}
	g.Go(func() error {
		var err error
		block3, err = c.repo.ReadBlockFile(gctx, l.EmailType, l.Aesthetic, blocks.SlotBlock3, l.Block3)
		return err
	})
	for i, name := range dividers {
		g.Go(func() error {
			text, err := c.repo.ReadBlockFile(gctx, l.EmailType, l.Aesthetic, blocks.SlotDividers, name)
			if err != nil {
				slog.Debug("divider unreadable, omitting", "file", name, "error", err)
				return nil
			}
			dividerText[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("compose %s: %w", l.LayoutID, err)
	}

	var parts []string
	parts = append(parts, Marker(blocks.SlotBlock1, l.Block1), strings.TrimSpace(block1))
	if len(dividers) > 0 && dividerText[0] != "" {
		parts = append(parts, Marker(blocks.SlotDividers, dividers[0]), strings.TrimSpace(dividerText[0]))
	}
	if l.UseProductSectionToken {
		parts = append(parts, Marker(blocks.SlotBlock2, productMarkerName), ProductSectionToken)
	} else if l.Block2 != nil {
		parts = append(parts, Marker(blocks.SlotBlock2, *l.Block2), strings.TrimSpace(block2))
	}
	if len(dividers) > 1 && dividerText[1] != "" {
		parts = append(parts, Marker(blocks.SlotDividers, dividers[1]), strings.TrimSpace(dividerText[1]))
	}
	parts = append(parts, Marker(blocks.SlotBlock3, l.Block3), strings.TrimSpace(block3))

	return "<mjml>\n<mj-body>\n" + strings.Join(parts, "\n") + "\n</mj-body>\n</mjml>\n", nil
}

// pickDividers chooses two divider files (with replacement). A library
// without dividers yields none.
func (c *Composer) pickDividers(ctx context.Context, l *Layout, rnd *rand.Rand) []string {
	files, err := c.repo.ListBlockFiles(ctx, l.EmailType, l.Aesthetic, blocks.SlotDividers)
	if err != nil || len(files) == 0 {
		slog.Debug("no dividers available", "type", l.EmailType, "aesthetic", l.Aesthetic)
		return nil
	}
	return []string{files[intN(rnd, len(files))], files[intN(rnd, len(files))]}
}

func intN(rnd *rand.Rand, n int) int {
	if rnd == nil {
		return rand.IntN(n)
	}
	return rnd.IntN(n)
}

func uint32N(rnd *rand.Rand) uint32 {
	if rnd == nil {
		return rand.Uint32()
	}
	return rnd.Uint32()
}
