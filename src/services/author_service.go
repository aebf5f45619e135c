package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nubecita/lacoctelera/src/models"
)

// AuthorService handles catalog operations for recipe authors.
type AuthorService struct {
	pool *pgxpool.Pool
}

// NewAuthorService creates a new author service
func NewAuthorService(pool *pgxpool.Pool) *AuthorService {
	return &AuthorService{pool: pool}
}

// Get returns an author by ID. Non-shareable authors come back trimmed to
// their public fields.
func (as *AuthorService) Get(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	var a models.Author
	err := as.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(surname, ''), COALESCE(email, ''), shareable,
		       COALESCE(description, ''), COALESCE(website, ''), created_at
		FROM authors WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Surname, &a.Email, &a.Shareable, &a.Description, &a.Website, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	public := a.PublicView()
	return &public, nil
}

// Search returns authors matching a name fragment, trimmed to public fields
// where the author is not shareable.
func (as *AuthorService) Search(ctx context.Context, name string) ([]models.Author, error) {
	rows, err := as.pool.Query(ctx, `
		SELECT id, name, COALESCE(surname, ''), COALESCE(email, ''), shareable,
		       COALESCE(description, ''), COALESCE(website, ''), created_at
		FROM authors
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search authors: %w", err)
	}
	defer rows.Close()

	var out []models.Author
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Surname, &a.Email, &a.Shareable, &a.Description, &a.Website, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		out = append(out, a.PublicView())
	}
	return out, rows.Err()
}

// Add registers a new author.
func (as *AuthorService) Add(ctx context.Context, author models.Author) (*models.Author, error) {
	author.ID = uuid.New()
	err := as.pool.QueryRow(ctx, `
		INSERT INTO authors (id, name, surname, email, shareable, description, website)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING created_at
	`, author.ID, author.Name, author.Surname, author.Email, author.Shareable,
		author.Description, author.Website).Scan(&author.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add author: %w", err)
	}
	return &author, nil
}

// Delete removes an author. Recipes keep a NULL author afterwards.
func (as *AuthorService) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := as.pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
