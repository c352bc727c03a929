// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blocks resolves and reads MJML template fragments from the
// fragment library. The library is organised as
//
//	<EmailType>/<aesthetic>/<slot>/<file>.txt
//	<EmailType>/<aesthetic>/product-sections/<count>/<file>.txt
//
// Lookups walk an aesthetic search order (requested, skeleton, legacy
// folders, default) and the first folder holding matching files wins.
// Fragment text is returned exactly as stored.
package blocks

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when no folder in the search order yields the
// requested fragment(s).
var ErrNotFound = errors.New("blocks: not found")

// Slot names.
const (
	SlotBlock1   = "block1"
	SlotBlock2   = "block2"
	SlotBlock3   = "block3"
	SlotDividers = "dividers"

	productSectionsDir = "product-sections"
	fragmentExt        = ".txt"
)

// Aesthetic folders used by the search order.
const (
	SkeletonAesthetic = "skeleton"
	DefaultAesthetic  = "default"
)

// legacyAesthetics are per-aesthetic folders that predate the skeleton set.
var legacyAesthetics = []string{"minimal_clean", "bold_contrasting"}

// Repository looks up fragments in a Source with a read-through cache.
// Fragments are immutable for the lifetime of the process, so cached
// entries never need invalidation. Safe for concurrent use.
type Repository struct {
	src   Source
	cache *fragmentCache
}

// NewRepository creates a repository over src.
func NewRepository(src Source) *Repository {
	return &Repository{src: src, cache: newFragmentCache()}
}

// EmailTypeDir maps an email type ("product_grid", "Promotion") to its
// library directory name ("Productgrid", "Promotion").
func EmailTypeDir(emailType string) string {
	s := strings.ToLower(strings.TrimSpace(emailType))
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
	return cases.Title(language.Und).String(s)
}

// NormalizeAesthetic lowercases an aesthetic id and joins words with underscores.
func NormalizeAesthetic(aesthetic string) string {
	s := strings.ToLower(strings.TrimSpace(aesthetic))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// SearchOrder returns the aesthetic folders consulted for a request, in order.
func SearchOrder(aesthetic string) []string {
	order := make([]string, 0, 3+len(legacyAesthetics))
	seen := make(map[string]bool)
	add := func(a string) {
		if a != "" && !seen[a] {
			seen[a] = true
			order = append(order, a)
		}
	}
	add(NormalizeAesthetic(aesthetic))
	add(SkeletonAesthetic)
	for _, a := range legacyAesthetics {
		add(a)
	}
	add(DefaultAesthetic)
	return order
}

// ListBlockFiles returns the fragment filenames for a slot from the first
// folder in the search order that has any. Returns ErrNotFound otherwise.
func (r *Repository) ListBlockFiles(ctx context.Context, emailType, aesthetic, slot string) ([]string, error) {
	typeDir := EmailTypeDir(emailType)
	for _, a := range SearchOrder(aesthetic) {
		files, err := r.files(ctx, path.Join(typeDir, a, slot))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	return nil, fmt.Errorf("%s/%s/%s: %w", typeDir, aesthetic, slot, ErrNotFound)
}

// ReadBlockFile returns the raw text of filename from the first folder in
// the search order that contains it.
func (r *Repository) ReadBlockFile(ctx context.Context, emailType, aesthetic, slot, filename string) (string, error) {
	typeDir := EmailTypeDir(emailType)
	for _, a := range SearchOrder(aesthetic) {
		text, err := r.read(ctx, typeDir, a, slot, filename)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return "", fmt.Errorf("%s/%s/%s/%s: %w", typeDir, aesthetic, slot, filename, ErrNotFound)
}

// ProductTiers returns the product counts that have a product-section
// folder for exactly this aesthetic, ascending. No search order applies.
func (r *Repository) ProductTiers(ctx context.Context, emailType, aesthetic string) ([]int, error) {
	dir := path.Join(EmailTypeDir(emailType), NormalizeAesthetic(aesthetic), productSectionsDir)
	entries, err := r.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	var tiers []int
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		n, err := strconv.Atoi(e.Name)
		if err != nil || n <= 0 {
			continue
		}
		tiers = append(tiers, n)
	}
	sort.Ints(tiers)
	return tiers, nil
}

// ProductVariants lists the fragment files of one product-count tier.
func (r *Repository) ProductVariants(ctx context.Context, emailType, aesthetic string, count int) ([]string, error) {
	return r.files(ctx, path.Join(EmailTypeDir(emailType), NormalizeAesthetic(aesthetic), productSlot(count)))
}

// ReadProductVariant reads one product-section fragment.
func (r *Repository) ReadProductVariant(ctx context.Context, emailType, aesthetic string, count int, filename string) (string, error) {
	return r.read(ctx, EmailTypeDir(emailType), NormalizeAesthetic(aesthetic), productSlot(count), filename)
}

func productSlot(count int) string {
	return path.Join(productSectionsDir, strconv.Itoa(count))
}

// files returns the sorted fragment filenames in dir.
func (r *Repository) files(ctx context.Context, dir string) ([]string, error) {
	entries, err := r.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir && strings.HasSuffix(e.Name, fragmentExt) {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Repository) list(ctx context.Context, dir string) ([]Entry, error) {
	if entries, ok := r.cache.getList(dir); ok {
		return entries, nil
	}
	entries, err := r.src.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	r.cache.putList(dir, entries)
	return entries, nil
}

func (r *Repository) read(ctx context.Context, typeDir, aesthetic, slot, filename string) (string, error) {
	key := fragmentKey{emailType: typeDir, aesthetic: aesthetic, slot: slot, filename: filename}
	if text, ok := r.cache.get(key); ok {
		return text, nil
	}
	data, err := r.src.Read(ctx, path.Join(typeDir, aesthetic, slot, filename))
	if err != nil {
		return "", err
	}
	text := string(data)
	r.cache.put(key, text)
	return text, nil
}
