package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nubecita/lacoctelera/src/services"
)

// TokenAuthMiddleware guards the restricted endpoints with an API bearer
// credential. The credential is the "<client>:<secret>" string handed out
// at registration, accepted either as an api_key query parameter or as an
// Authorization: Bearer header.
func TokenAuthMiddleware(access *services.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := extractBearer(c)
		if bearer == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_credentials",
				"message": "An API token is required for this endpoint",
			})
			c.Abort()
			return
		}

		err := access.CheckAccess(c.Request.Context(), bearer)
		if err == nil {
			c.Next()
			return
		}

		switch {
		case errors.Is(err, services.ErrInvalidID):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_credentials",
				"message": "Unknown client identifier",
			})
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "invalid_credentials",
				"message": "The provided token is not valid",
			})
		case errors.Is(err, services.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "account_disabled",
				"message": "This account has not been enabled",
			})
		case errors.Is(err, services.ErrExpiredAccess):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "expired_token",
				"message": "The provided token has expired, request a new one",
			})
		default:
			log.Error().
				Err(err).
				Str("request_id", GetRequestID(c)).
				Msg("Token verification failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Could not verify credentials",
			})
		}
		c.Abort()
	}
}

// extractBearer pulls the credential from the api_key query parameter,
// falling back to the Authorization header.
func extractBearer(c *gin.Context) string {
	if key := c.Query("api_key"); key != "" {
		return key
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
