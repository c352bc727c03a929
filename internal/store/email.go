// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"mailsmith/internal/models"
)

// DefaultListLimit caps ListRecent when the caller passes no limit.
const DefaultListLimit = 50

// EmailStore handles generation history database operations.
type EmailStore struct {
	db *sql.DB
}

// NewEmailStore creates a new EmailStore with the given database connection.
func NewEmailStore(db *sql.DB) *EmailStore {
	return &EmailStore{db: db}
}

// Create inserts a generated email. A zero ID is replaced with a new UUID;
// CreatedAt is set by the database.
func (s *EmailStore) Create(ctx context.Context, e *models.GeneratedEmail) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO generated_emails
			(id, email_type, aesthetic, skin, layout_id, brand_url, mjml,
			 model, prompt_tokens, completion_tokens, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, e.ID, e.EmailType, e.Aesthetic, e.Skin, e.LayoutID, e.BrandURL, e.MJML,
		e.Model, e.PromptTokens, e.CompletionTokens, e.DurationMS,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create generated email: %w", err)
	}
	return nil
}

// FindByID retrieves a generated email with its document. Returns nil if
// not found.
func (s *EmailStore) FindByID(ctx context.Context, id uuid.UUID) (*models.GeneratedEmail, error) {
	e := &models.GeneratedEmail{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email_type, aesthetic, skin, layout_id, brand_url, mjml,
		       model, prompt_tokens, completion_tokens, duration_ms, created_at
		FROM generated_emails WHERE id = $1
	`, id).Scan(
		&e.ID, &e.EmailType, &e.Aesthetic, &e.Skin, &e.LayoutID, &e.BrandURL, &e.MJML,
		&e.Model, &e.PromptTokens, &e.CompletionTokens, &e.DurationMS, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find generated email by id: %w", err)
	}
	return e, nil
}

// ListRecent returns the newest generations first, without their documents.
func (s *EmailStore) ListRecent(ctx context.Context, limit int) ([]models.GeneratedEmail, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email_type, aesthetic, skin, layout_id, brand_url,
		       model, prompt_tokens, completion_tokens, duration_ms, created_at
		FROM generated_emails
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generated emails: %w", err)
	}
	defer rows.Close()

	var emails []models.GeneratedEmail
	for rows.Next() {
		var e models.GeneratedEmail
		if err := rows.Scan(
			&e.ID, &e.EmailType, &e.Aesthetic, &e.Skin, &e.LayoutID, &e.BrandURL,
			&e.Model, &e.PromptTokens, &e.CompletionTokens, &e.DurationMS, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generated email: %w", err)
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
