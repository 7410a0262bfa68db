package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRegistrar mounts a single GET route and records that it ran.
type fakeRegistrar struct {
	path       string
	registered bool
}

func (f *fakeRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	f.registered = true
	rg.GET(f.path, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"path": f.path})
	})
}

func TestNewRouter_DefaultsToV1(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.APIVersion())
}

func TestNewRouter_VersionOverride(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.APIVersion())
}

func TestRouter_SetupMountsUnderVersionedPrefix(t *testing.T) {
	engine := gin.New()
	reg := &fakeRegistrar{path: "/promotions/placements/home"}

	NewRouter(engine).Register(reg).Setup()

	assert.True(t, reg.registered)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/promotions/placements/home", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// The same route must not exist outside the version prefix.
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/promotions/placements/home", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RegisterBeforeSetupIsInert(t *testing.T) {
	engine := gin.New()
	reg := &fakeRegistrar{path: "/coupons/validate"}

	NewRouter(engine).Register(reg)

	assert.False(t, reg.registered)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/coupons/validate", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_MultipleRegistrars(t *testing.T) {
	engine := gin.New()
	checkout := &fakeRegistrar{path: "/checkout/quote"}
	display := &fakeRegistrar{path: "/promotions/placements/sidebar"}

	NewRouter(engine).Register(checkout, display).Setup()

	for _, path := range []string{
		"/api/v1/checkout/quote",
		"/api/v1/promotions/placements/sidebar",
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_CustomVersionInPath(t *testing.T) {
	engine := gin.New()
	reg := &fakeRegistrar{path: "/campaigns"}

	NewRouter(engine, WithAPIVersion("v2")).Register(reg).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v2/campaigns", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/campaigns", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
