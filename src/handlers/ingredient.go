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

// IngredientHandler exposes the ingredient catalog
type IngredientHandler struct {
	ingredients *services.IngredientService
}

// NewIngredientHandler creates a new ingredient handler
func NewIngredientHandler(ingredients *services.IngredientService) *IngredientHandler {
	return &IngredientHandler{ingredients: ingredients}
}

// HandleSearch returns ingredients whose name matches the query fragment
func (ih *IngredientHandler) HandleSearch(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "name query parameter is required",
		})
		return
	}

	ingredients, err := ih.ingredients.Search(c.Request.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("ingredient search failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to search ingredients",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredients": ingredients,
		"total":       len(ingredients),
	})
}

// HandleGet returns a single ingredient by ID
func (ih *IngredientHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid ingredient id",
		})
		return
	}

	ingredient, err := ih.ingredients.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "ingredient not found",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("ingredient lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch ingredient",
		})
		return
	}

	c.JSON(http.StatusOK, ingredient)
}

// AddIngredientRequest represents the request body for a new ingredient
type AddIngredientRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"desc"`
}

// HandleAdd creates a new ingredient. Restricted endpoint.
func (ih *IngredientHandler) HandleAdd(c *gin.Context) {
	var req AddIngredientRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	category, err := models.ParseIngCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	ingredient, err := ih.ingredients.Add(c.Request.Context(), req.Name, category, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "an ingredient with this name already exists",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("ingredient insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to add ingredient",
		})
		return
	}

	c.JSON(http.StatusCreated, ingredient)
}
