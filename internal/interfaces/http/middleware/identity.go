package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/auth"
)

// Customer identity context keys
const (
	CustomerIDKey    = "customer_id"
	CustomerEmailKey = "customer_email"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// IdentityConfig holds configuration for the customer identity middleware
type IdentityConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Logger for middleware logging
	Logger *zap.Logger
}

// CustomerIdentity resolves the customer attached to a request, if any.
//
// Checkout endpoints serve anonymous shoppers, so a missing Authorization
// header is not an error. A header that is present but does not carry a
// valid token is rejected with 401 rather than silently downgraded to an
// anonymous session.
func CustomerIdentity(jwtService *auth.JWTService) gin.HandlerFunc {
	return CustomerIdentityWithConfig(IdentityConfig{JWTService: jwtService})
}

// CustomerIdentityWithConfig creates the identity middleware with custom config
func CustomerIdentityWithConfig(cfg IdentityConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			rejectToken(c, "Invalid authorization header format")
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := cfg.JWTService.ValidateToken(token)
		if err != nil {
			log.Debug("rejected bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			switch err {
			case auth.ErrExpiredToken:
				rejectToken(c, "Token has expired")
			default:
				rejectToken(c, "Invalid token")
			}
			return
		}

		c.Set(CustomerIDKey, claims.CustomerID)
		c.Set(CustomerEmailKey, claims.Email)
		c.Next()
	}
}

func rejectToken(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_TOKEN_INVALID",
			"message": message,
		},
	})
}

// GetCustomerID returns the authenticated customer id, or empty for anonymous
func GetCustomerID(c *gin.Context) string {
	return c.GetString(CustomerIDKey)
}
