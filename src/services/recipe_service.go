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

// RecipeService handles catalog operations for recipes.
type RecipeService struct {
	pool *pgxpool.Pool
}

// NewRecipeService creates a new recipe service
func NewRecipeService(pool *pgxpool.Pool) *RecipeService {
	return &RecipeService{pool: pool}
}

// Get returns a recipe with its ingredient lines.
func (rs *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var r models.Recipe
	var category string
	err := rs.pool.QueryRow(ctx, `
		SELECT id, name, category, rating, COALESCE(description, ''), steps, author_id, created_at
		FROM recipes WHERE id = $1
	`, id).Scan(&r.ID, &r.Name, &category, &r.Rating, &r.Description, &r.Steps, &r.AuthorID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	r.Category = models.RecipeCategory(category)

	rows, err := rs.pool.Query(ctx, `
		SELECT ingredient_id, quantity, unit
		FROM recipe_ingredients WHERE recipe_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rc models.RecipeContains
		if err := rows.Scan(&rc.IngredientID, &rc.Quantity, &rc.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		r.Ingredients = append(r.Ingredients, rc)
	}
	return &r, rows.Err()
}

// Search returns recipes matching a name fragment, without ingredient lines.
func (rs *RecipeService) Search(ctx context.Context, name string) ([]models.Recipe, error) {
	rows, err := rs.pool.Query(ctx, `
		SELECT id, name, category, rating, COALESCE(description, ''), steps, author_id, created_at
		FROM recipes
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	defer rows.Close()

	var out []models.Recipe
	for rows.Next() {
		var r models.Recipe
		var category string
		if err := rows.Scan(&r.ID, &r.Name, &category, &r.Rating, &r.Description, &r.Steps, &r.AuthorID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		r.Category = models.RecipeCategory(category)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Add inserts a recipe and its ingredient lines in one transaction, so a
// recipe without its ingredients can never be observed.
func (rs *RecipeService) Add(ctx context.Context, recipe models.Recipe) (*models.Recipe, error) {
	recipe.ID = uuid.New()

	tx, err := rs.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO recipes (id, name, category, rating, description, steps, author_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING created_at
	`, recipe.ID, recipe.Name, string(recipe.Category), recipe.Rating,
		recipe.Description, recipe.Steps, recipe.AuthorID).Scan(&recipe.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add recipe: %w", err)
	}

	for _, rc := range recipe.Ingredients {
		if _, err := tx.Exec(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit)
			VALUES ($1, $2, $3, $4)
		`, recipe.ID, rc.IngredientID, rc.Quantity, rc.Unit); err != nil {
			return nil, fmt.Errorf("failed to add recipe ingredient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &recipe, nil
}
