package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IngCategory classifies an ingredient.
type IngCategory string

const (
	IngCategorySpirit    IngCategory = "spirit"
	IngCategoryBitter    IngCategory = "bitter"
	IngCategorySoftDrink IngCategory = "soft_drink"
	IngCategoryGarnish   IngCategory = "garnish"
	IngCategoryOther     IngCategory = "other"
)

// ParseIngCategory maps a client-supplied string to an IngCategory.
func ParseIngCategory(s string) (IngCategory, error) {
	switch s {
	case "spirit":
		return IngCategorySpirit, nil
	case "bitter":
		return IngCategoryBitter, nil
	case "soft_drink", "softdrink":
		return IngCategorySoftDrink, nil
	case "garnish":
		return IngCategoryGarnish, nil
	case "other":
		return IngCategoryOther, nil
	default:
		return "", fmt.Errorf("unknown ingredient category: %q", s)
	}
}

// Ingredient is a building block of recipes.
type Ingredient struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Category    IngCategory `json:"category"`
	Description string      `json:"desc,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
