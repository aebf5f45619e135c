package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nubecita/lacoctelera/src/middleware"
	"github.com/nubecita/lacoctelera/src/services"
)

// TokenHandler exposes the client registration workflow over HTTP
type TokenHandler struct {
	registration *services.RegistrationService
	formPage     string
	resultTmpl   *template.Template
}

// NewTokenHandler creates a new token handler. formPage and resultTemplate
// are paths to the HTML served for the request form and the validation
// result.
func NewTokenHandler(registration *services.RegistrationService, formPage, resultTemplate string) (*TokenHandler, error) {
	tmpl, err := template.ParseFiles(resultTemplate)
	if err != nil {
		return nil, err
	}
	return &TokenHandler{
		registration: registration,
		formPage:     formPage,
		resultTmpl:   tmpl,
	}, nil
}

// HandleRequestForm serves the HTML form for requesting an API token
func (th *TokenHandler) HandleRequestForm(c *gin.Context) {
	c.File(th.formPage)
}

// TokenRequestBody represents the request body for a new token request.
// Accepted as JSON or as an HTML form post.
type TokenRequestBody struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email" binding:"required,email"`
	Explanation string `json:"explanation" form:"explanation" binding:"required,min=20,max=400"`
}

// HandleTokenRequest registers a new client and triggers the confirmation
// email. Responds 202: the account is not usable until the email is
// confirmed and an operator enables it.
func (th *TokenHandler) HandleTokenRequest(c *gin.Context) {
	var req TokenRequestBody
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "A valid email address and an explanation of 20 to 400 characters are required",
		})
		return
	}

	_, err := th.registration.IssueRequest(c.Request.Context(), services.TokenRequest{
		Name:        req.Name,
		Email:       req.Email,
		Explanation: req.Explanation,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Request received. Check your inbox for a confirmation link.",
		})
	case errors.Is(err, services.ErrEmailExists):
		c.JSON(http.StatusNotAcceptable, gin.H{
			"error":   "email_registered",
			"message": "This email address is already registered",
		})
	case errors.Is(err, services.ErrEmailClient):
		// The account exists; only the email failed. Point at the resend.
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("confirmation email failed")
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Request received, but the confirmation email could not be sent. Use the resend endpoint.",
		})
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("token request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Could not process the request",
		})
	}
}

// HandleValidateToken completes the email confirmation. On success it shows
// the definitive API token exactly once; there is no way to retrieve it
// again.
func (th *TokenHandler) HandleValidateToken(c *gin.Context) {
	email := c.Query("email")
	secret := c.Query("token")
	if email == "" || secret == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "email and token parameters are required",
		})
		return
	}

	bearer, err := th.registration.ConfirmEmail(c.Request.Context(), email, secret)
	switch {
	case err == nil:
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusAccepted)
		if err := th.resultTmpl.Execute(c.Writer, gin.H{"Token": bearer}); err != nil {
			log.Error().Err(err).Msg("failed to render validation page")
		}
	case errors.Is(err, services.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_email",
			"message": "No registration request exists for this email address",
		})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidID):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "invalid_credentials",
			"message": "The confirmation link is not valid or has expired",
		})
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("email confirmation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Could not complete the confirmation",
		})
	}
}

// ResendRequestBody represents the request body for re-sending the
// confirmation email.
type ResendRequestBody struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

// HandleResendConfirmation re-issues the confirmation email for an account
// that never completed validation.
func (th *TokenHandler) HandleResendConfirmation(c *gin.Context) {
	var req ResendRequestBody
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "A valid email address is required",
		})
		return
	}

	err := th.registration.ResendConfirmation(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "A new confirmation link is on its way.",
		})
	case errors.Is(err, services.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_email",
			"message": "No registration request exists for this email address",
		})
	case errors.Is(err, services.ErrEmailExists):
		c.JSON(http.StatusNotAcceptable, gin.H{
			"error":   "already_validated",
			"message": "This account has already been validated",
		})
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("confirmation resend failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Could not resend the confirmation",
		})
	}
}
