package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecipeCategory grades a recipe by the skill and equipment it demands.
type RecipeCategory string

const (
	RecipeCategoryEasy     RecipeCategory = "easy"
	RecipeCategoryMedium   RecipeCategory = "medium"
	RecipeCategoryAdvanced RecipeCategory = "advanced"
	RecipeCategoryPro      RecipeCategory = "pro"
)

// ParseRecipeCategory maps a client-supplied string to a RecipeCategory.
func ParseRecipeCategory(s string) (RecipeCategory, error) {
	switch s {
	case "easy":
		return RecipeCategoryEasy, nil
	case "medium":
		return RecipeCategoryMedium, nil
	case "advanced":
		return RecipeCategoryAdvanced, nil
	case "pro":
		return RecipeCategoryPro, nil
	default:
		return "", fmt.Errorf("unknown recipe category: %q", s)
	}
}

// RecipeContains is one line of a recipe: an ingredient plus its amount.
type RecipeContains struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"` // cl, ml, oz, pieces...
}

// Recipe is a cocktail recipe contributed by an author.
type Recipe struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Category    RecipeCategory   `json:"category"`
	Rating      int              `json:"rating"` // 0..5 stars
	Description string           `json:"description,omitempty"`
	Steps       []string         `json:"steps"`
	Ingredients []RecipeContains `json:"ingredients"`
	AuthorID    *uuid.UUID       `json:"author_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
