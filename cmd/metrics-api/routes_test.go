package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/youthhub-metrics-api/internal/handler"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	"github.com/noah-isme/youthhub-metrics-api/internal/service"
	"github.com/noah-isme/youthhub-metrics-api/pkg/config"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1", Dashboard: config.DashboardConfig{Enabled: true}}
	return newRouter(cfg, zap.NewNop(), routeDeps{
		auth:       service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"}),
		metrics:    metrics,
		reports:    handler.NewReportHandler(nil, nil, nil),
		dashboards: handler.NewDashboardHandler(nil),
		analytics:  handler.NewAnalyticsHandler(service.NewAnalyticsService(nil, metrics, nil)),
		health:     handler.NewMetricsHandler(metrics, nil),
	})
}

func bearer(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
		UserID:           "user-1",
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestPublicEndpoints(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/docs/index.html", "").Code)
}

func TestReportRoutesRequireToken(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/reports/comprehensive", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/dashboard", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/reports", bearer(t, models.RoleCompany)).Code)
}

func TestExportRoutesWhenDisabled(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/reports/exports", bearer(t, models.RoleAdmin)).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/export/abc", "").Code)
}

func TestAnalyticsIsAdminOnly(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/analytics/system", bearer(t, models.RoleIndividual)).Code)

	rec := serve(r, http.MethodGet, "/api/v1/analytics/system", bearer(t, models.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requestsTotal")
}
