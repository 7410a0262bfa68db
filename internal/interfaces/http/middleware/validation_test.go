package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type couponValidateForm struct {
	Code       string `json:"code" binding:"required,min=3,max=64"`
	CustomerID string `json:"customer_id" binding:"omitempty,uuid"`
	Channel    string `json:"channel" binding:"omitempty,oneof=web mobile pos"`
	Quantity   int    `json:"quantity" binding:"omitempty,gte=1"`
}

func newValidationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/coupons/validate", func(c *gin.Context) {
		var form couponValidateForm
		if err := c.ShouldBindJSON(&form); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": form.Code})
	})
	return router
}

func postJSON(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/coupons/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError_ReportsJSONFieldNames(t *testing.T) {
	router := newValidationRouter()

	w := postJSON(t, router, `{"customer_id":"not-a-uuid"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Request validation failed")
	// JSON tag names, not Go struct names.
	assert.Contains(t, body, `"code"`)
	assert.Contains(t, body, `"customer_id"`)
	assert.NotContains(t, body, "CustomerID")
	assert.Contains(t, body, "This field is required")
	assert.Contains(t, body, "Invalid UUID format")
}

func TestHandleValidationError_MessagePerTag(t *testing.T) {
	router := newValidationRouter()

	t.Run("min length", func(t *testing.T) {
		w := postJSON(t, router, `{"code":"ab"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Must be at least 3 characters")
	})

	t.Run("oneof", func(t *testing.T) {
		w := postJSON(t, router, `{"code":"SUMMER25","channel":"fax"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Must be one of: web mobile pos")
	})

	t.Run("gte on number", func(t *testing.T) {
		w := postJSON(t, router, `{"code":"SUMMER25","quantity":0}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Must be greater than or equal to 1")
	})

	t.Run("valid body passes", func(t *testing.T) {
		w := postJSON(t, router, `{"code":"SUMMER25","channel":"web","quantity":2}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleValidationError_CarriesRequestID(t *testing.T) {
	router := newValidationRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/coupons/validate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "checkout-77")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "checkout-77")
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	// A JSON syntax error carries no field details; the envelope
	// still comes back well-formed.
	resp := FormatValidationErrors(assert.AnError, "req-9")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Empty(t, resp.Error.Details)
	assert.Equal(t, "req-9", resp.Error.RequestID)
}
