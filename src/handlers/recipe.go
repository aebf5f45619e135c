package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nubecita/lacoctelera/src/middleware"
	"github.com/nubecita/lacoctelera/src/models"
	"github.com/nubecita/lacoctelera/src/services"
)

// RecipeHandler exposes the recipe catalog
type RecipeHandler struct {
	recipes *services.RecipeService
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(recipes *services.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// HandleGet returns a single recipe with its ingredient lines
func (rh *RecipeHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid recipe id",
		})
		return
	}

	recipe, err := rh.recipes.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "recipe not found",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("recipe lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch recipe",
		})
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// HandleSearch returns recipes whose name matches the query fragment
func (rh *RecipeHandler) HandleSearch(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "name query parameter is required",
		})
		return
	}

	recipes, err := rh.recipes.Search(c.Request.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("recipe search failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to search recipes",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"total":   len(recipes),
	})
}

// RecipeLineRequest is one ingredient line in a recipe submission
type RecipeLineRequest struct {
	IngredientID uuid.UUID `json:"ingredient_id" binding:"required"`
	Quantity     float64   `json:"quantity" binding:"required"`
	Unit         string    `json:"unit" binding:"required"`
}

// AddRecipeRequest represents the request body for a new recipe
type AddRecipeRequest struct {
	Name        string              `json:"name" binding:"required"`
	Category    string              `json:"category" binding:"required"`
	Rating      int                 `json:"rating" binding:"min=0,max=5"`
	Description string              `json:"description"`
	Steps       []string            `json:"steps" binding:"required,min=1"`
	Ingredients []RecipeLineRequest `json:"ingredients" binding:"required,min=1"`
	AuthorID    *uuid.UUID          `json:"author_id"`
}

// HandleAdd creates a new recipe with its ingredient lines. Restricted
// endpoint.
func (rh *RecipeHandler) HandleAdd(c *gin.Context) {
	var req AddRecipeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	category, err := models.ParseRecipeCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	lines := make([]models.RecipeContains, 0, len(req.Ingredients))
	for _, line := range req.Ingredients {
		lines = append(lines, models.RecipeContains{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
		})
	}

	recipe, err := rh.recipes.Add(c.Request.Context(), models.Recipe{
		Name:        req.Name,
		Category:    category,
		Rating:      req.Rating,
		Description: req.Description,
		Steps:       req.Steps,
		Ingredients: lines,
		AuthorID:    req.AuthorID,
	})
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("recipe insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to add recipe",
		})
		return
	}

	c.JSON(http.StatusCreated, recipe)
}
