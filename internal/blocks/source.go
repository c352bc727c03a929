// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blocks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"mailsmith/internal/storage"
)

// Entry is one item of a fragment directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// Source is a read-only, file-system-like fragment store. Paths are
// slash-separated and relative to the library root.
type Source interface {
	// List returns the entries of dir. Returns ErrNotFound if dir does not exist.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Read returns the contents of the file at p. Returns ErrNotFound if absent.
	Read(ctx context.Context, p string) ([]byte, error)
}

// FSSource serves fragments from an fs.FS (embedded library, os.DirFS, or
// an in-memory map in tests).
type FSSource struct {
	fsys fs.FS
}

// NewFSSource wraps fsys as a fragment source.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// List reads a directory from the underlying file system.
func (s *FSSource) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := fs.ReadDir(s.fsys, dir)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return nil, fmt.Errorf("list %s: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Name: it.Name(), IsDir: it.IsDir()})
	}
	return entries, nil
}

// Read reads a single fragment file.
func (s *FSSource) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, p)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// objectStore is the subset of the S3 client used by S3Source.
type objectStore interface {
	List(ctx context.Context, prefix string) (dirs, files []string, err error)
	Download(ctx context.Context, key string) ([]byte, error)
}

var _ objectStore = (*storage.Client)(nil)

// S3Source serves fragments from an S3-compatible bucket under a key prefix.
// Directories are emulated with "/" delimited common prefixes. Paths that
// are not valid fs paths are treated as missing so keys stay under prefix.
type S3Source struct {
	store  objectStore
	prefix string
}

// NewS3Source creates a source rooted at prefix inside the client's bucket.
func NewS3Source(client *storage.Client, prefix string) *S3Source {
	return &S3Source{store: client, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Source) key(p string) string {
	if s.prefix == "" {
		return p
	}
	return path.Join(s.prefix, p)
}

// List lists the objects and sub-prefixes directly under dir.
func (s *S3Source) List(ctx context.Context, dir string) ([]Entry, error) {
	if !fs.ValidPath(dir) {
		return nil, fmt.Errorf("list %s: %w", dir, ErrNotFound)
	}
	dirs, files, err := s.store.List(ctx, s.key(dir)+"/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(dirs) == 0 && len(files) == 0 {
		return nil, fmt.Errorf("list %s: %w", dir, ErrNotFound)
	}
	entries := make([]Entry, 0, len(dirs)+len(files))
	for _, d := range dirs {
		entries = append(entries, Entry{Name: path.Base(strings.TrimSuffix(d, "/")), IsDir: true})
	}
	for _, f := range files {
		entries = append(entries, Entry{Name: path.Base(f)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Read downloads a single fragment object.
func (s *S3Source) Read(ctx context.Context, p string) ([]byte, error) {
	if !fs.ValidPath(p) {
		return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	data, err := s.store.Download(ctx, s.key(p))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}
