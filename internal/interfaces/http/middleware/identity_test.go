package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
)

func newTestJWTService(secret string, expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                secret,
		AccessTokenExpiration: expiration,
		Issuer:                "storefront",
	})
}

func newIdentityRouter(t *testing.T, svc *auth.JWTService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CustomerIdentity(svc))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetCustomerID(c))
	})
	return router
}

func TestCustomerIdentity(t *testing.T) {
	svc := newTestJWTService("test-secret-key-for-identity-tests", time.Hour)

	t.Run("anonymous request passes through", func(t *testing.T) {
		router := newIdentityRouter(t, svc)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("valid token resolves customer id", func(t *testing.T) {
		customerID := uuid.New()
		token, _, err := svc.GenerateToken(customerID, "shopper@example.com")
		require.NoError(t, err)

		router := newIdentityRouter(t, svc)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, customerID.String(), w.Body.String())
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		router := newIdentityRouter(t, svc)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(AuthHeaderKey, "Basic abc123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_INVALID")
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expiredSvc := newTestJWTService("test-secret-key-for-identity-tests", -time.Minute)
		token, _, err := expiredSvc.GenerateToken(uuid.New(), "shopper@example.com")
		require.NoError(t, err)

		router := newIdentityRouter(t, svc)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "expired")
	})

	t.Run("token signed with different secret is rejected", func(t *testing.T) {
		otherSvc := newTestJWTService("a-completely-different-secret-key", time.Hour)
		token, _, err := otherSvc.GenerateToken(uuid.New(), "shopper@example.com")
		require.NoError(t, err)

		router := newIdentityRouter(t, svc)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
