package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Reports.CacheEnabled)
	assert.Equal(t, 10*time.Minute, cfg.Reports.CacheTTL)
	assert.Equal(t, 5, cfg.Reports.TopN)
	assert.Equal(t, "@every 1h", cfg.Exports.CleanupSchedule)
	assert.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("REPORT_TOP_N", 0)
	v.Set("REPORT_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)

	assert.Equal(t, 5, cfg.Reports.TopN)
	assert.Equal(t, 10*time.Minute, cfg.Reports.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
