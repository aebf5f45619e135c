package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nubecita/lacoctelera/src/models"
)

// ErrNotFound indicates the requested catalog entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists indicates a catalog insert hit a uniqueness constraint.
var ErrAlreadyExists = errors.New("already exists")

// IngredientService handles catalog operations for ingredients.
type IngredientService struct {
	pool *pgxpool.Pool
}

// NewIngredientService creates a new ingredient service
func NewIngredientService(pool *pgxpool.Pool) *IngredientService {
	return &IngredientService{pool: pool}
}

// Search returns ingredients whose name contains the given fragment,
// case-insensitively. An empty fragment lists everything.
func (is *IngredientService) Search(ctx context.Context, name string) ([]models.Ingredient, error) {
	rows, err := is.pool.Query(ctx, `
		SELECT id, name, category, COALESCE(description, ''), created_at
		FROM ingredients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	defer rows.Close()

	var out []models.Ingredient
	for rows.Next() {
		var ing models.Ingredient
		var category string
		if err := rows.Scan(&ing.ID, &ing.Name, &category, &ing.Description, &ing.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ing.Category = models.IngCategory(category)
		out = append(out, ing)
	}
	return out, rows.Err()
}

// Add inserts a new ingredient. Names are unique; a duplicate reports
// ErrAlreadyExists via the constraint rather than a racy pre-check.
func (is *IngredientService) Add(ctx context.Context, name string, category models.IngCategory, description string) (*models.Ingredient, error) {
	ing := &models.Ingredient{ID: uuid.New(), Name: name, Category: category, Description: description}

	err := is.pool.QueryRow(ctx, `
		INSERT INTO ingredients (id, name, category, description)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING created_at
	`, ing.ID, name, string(category), description).Scan(&ing.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("ingredient %q: %w", name, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to add ingredient: %w", err)
	}
	return ing, nil
}

// Get returns a single ingredient by ID.
func (is *IngredientService) Get(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ing models.Ingredient
	var category string
	err := is.pool.QueryRow(ctx, `
		SELECT id, name, category, COALESCE(description, ''), created_at
		FROM ingredients WHERE id = $1
	`, id).Scan(&ing.ID, &ing.Name, &category, &ing.Description, &ing.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	ing.Category = models.IngCategory(category)
	return &ing, nil
}
