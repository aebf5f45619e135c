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

// AuthorHandler exposes the author catalog
type AuthorHandler struct {
	authors *services.AuthorService
}

// NewAuthorHandler creates a new author handler
func NewAuthorHandler(authors *services.AuthorService) *AuthorHandler {
	return &AuthorHandler{authors: authors}
}

// HandleGet returns a single author by ID. Non-shareable authors come back
// trimmed to their public fields.
func (ah *AuthorHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid author id",
		})
		return
	}

	author, err := ah.authors.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "author not found",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("author lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch author",
		})
		return
	}

	c.JSON(http.StatusOK, author)
}

// HandleSearch returns authors whose name matches the query fragment
func (ah *AuthorHandler) HandleSearch(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "name query parameter is required",
		})
		return
	}

	authors, err := ah.authors.Search(c.Request.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("author search failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to search authors",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authors": authors,
		"total":   len(authors),
	})
}

// AddAuthorRequest represents the request body for a new author
type AddAuthorRequest struct {
	Name        string `json:"name" binding:"required"`
	Surname     string `json:"surname"`
	Email       string `json:"email" binding:"omitempty,email"`
	Shareable   bool   `json:"shareable"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// HandleAdd creates a new author. Restricted endpoint.
func (ah *AuthorHandler) HandleAdd(c *gin.Context) {
	var req AddAuthorRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	author, err := ah.authors.Add(c.Request.Context(), models.Author{
		Name:        req.Name,
		Surname:     req.Surname,
		Email:       req.Email,
		Shareable:   req.Shareable,
		Description: req.Description,
		Website:     req.Website,
	})
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("author insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to add author",
		})
		return
	}

	c.JSON(http.StatusCreated, author)
}

// HandleDelete removes an author. Restricted endpoint; recipes keep their
// content but lose the author reference.
func (ah *AuthorHandler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid author id",
		})
		return
	}

	if err := ah.authors.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "author not found",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("author delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to delete author",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}
