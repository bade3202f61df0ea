package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	"github.com/noah-isme/youthhub-metrics-api/internal/service"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
	err    error
}

func (v staticValidator) ValidateToken(string) (*models.JWTClaims, error) {
	return v.claims, v.err
}

func newRouter(validator TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secure", JWT(validator), RequireRoles(roles...), func(c *gin.Context) {
		claims, _ := Claims(c)
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := newRouter(staticValidator{claims: &models.JWTClaims{UserID: "u", Role: models.RoleAdmin}}, models.RoleAdmin)

	for _, header := range []string{"", "Token abc", "Bearer"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	r := newRouter(staticValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "expired")}, models.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	cases := map[models.UserRole]int{
		models.RoleAdmin:      http.StatusOK,
		models.RoleIndividual: http.StatusForbidden,
	}
	for role, want := range cases {
		r := newRouter(staticValidator{claims: &models.JWTClaims{UserID: "u-1", Role: role}}, models.RoleAdmin)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer abc")
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/meta", WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/meta", nil))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/reports/:type", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reports/comprehensive", nil))
	assert.Equal(t, uint64(1), metrics.Snapshot().RequestsTotal)
}
