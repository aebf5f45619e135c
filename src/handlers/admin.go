package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nubecita/lacoctelera/src/middleware"
	"github.com/nubecita/lacoctelera/src/models"
	"github.com/nubecita/lacoctelera/src/services"
)

// AdminHandler handles the operator surface: login and client approval
type AdminHandler struct {
	adminService *services.AdminService
	registration *services.RegistrationService
	auth         *middleware.AdminAuth
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService, registration *services.RegistrationService, auth *middleware.AdminAuth) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		registration: registration,
		auth:         auth,
	}
}

// AdminLoginRequest represents the request body for admin login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse represents the response for successful login
type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// HandleAdminLogin authenticates admin user and returns JWT token
func (ah *AdminHandler) HandleAdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	admin, err := ah.adminService.AuthenticateAdmin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid username or password",
		})
		return
	}

	token, err := ah.auth.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to generate token",
		})
		return
	}

	// Set cookie
	expiresAt := time.Now().Add(24 * time.Hour)
	c.SetCookie(
		"admin_token",
		token,
		int(24*time.Hour.Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, AdminLoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}

// HandleAdminLogout clears the admin token cookie
func (ah *AdminHandler) HandleAdminLogout(c *gin.Context) {
	c.SetCookie(
		"admin_token",
		"",
		-1,
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "logged out",
	})
}

// AdminStatusResponse represents the response for admin status check
type AdminStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	AdminID       string `json:"admin_id"`
	Username      string `json:"username"`
}

// HandleAdminStatus returns the current admin authentication status
func (ah *AdminHandler) HandleAdminStatus(c *gin.Context) {
	adminID, _ := c.Get("admin_id")
	username, _ := c.Get("username")

	c.JSON(http.StatusOK, AdminStatusResponse{
		Authenticated: true,
		AdminID:       adminID.(string),
		Username:      username.(string),
	})
}

// ClientListResponse represents a list of client accounts with total count
type ClientListResponse struct {
	Clients []models.ApiUser `json:"clients"`
	Total   int              `json:"total"`
}

// HandleListPendingClients returns validated accounts awaiting approval
func (ah *AdminHandler) HandleListPendingClients(c *gin.Context) {
	clients, err := ah.registration.ListPendingClients(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("failed to list pending clients")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list pending clients",
		})
		return
	}

	c.JSON(http.StatusOK, ClientListResponse{
		Clients: clients,
		Total:   len(clients),
	})
}

// HandleEnableClient grants API access to a validated client account
func (ah *AdminHandler) HandleEnableClient(c *gin.Context) {
	ah.setClientEnabled(c, true)
}

// HandleDisableClient revokes a client account's access
func (ah *AdminHandler) HandleDisableClient(c *gin.Context) {
	ah.setClientEnabled(c, false)
}

func (ah *AdminHandler) setClientEnabled(c *gin.Context, enabled bool) {
	id, err := models.ParseClientID(c.Param("client_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid client_id",
		})
		return
	}

	var opErr error
	if enabled {
		opErr = ah.registration.EnableClient(c.Request.Context(), id)
	} else {
		opErr = ah.registration.DisableClient(c.Request.Context(), id)
	}

	switch {
	case opErr == nil:
		c.JSON(http.StatusOK, gin.H{
			"client_id": id.String(),
			"enabled":   enabled,
		})
	case errors.Is(opErr, services.ErrInvalidID):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown client",
		})
	default:
		log.Error().Err(opErr).Str("request_id", middleware.GetRequestID(c)).Msg("failed to update client")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to update client",
		})
	}
}
