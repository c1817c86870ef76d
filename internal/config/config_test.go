package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("HOST", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.AllowedHost)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadProductionDerivesAllowedHost(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("HOST", "https://api.moodloop.app:443/base")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api.moodloop.app", cfg.AllowedHost)
}

func TestLoadParsesAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://moodloop.app, https://staging.moodloop.app ,")

	cfg := Load()

	assert.Equal(t, []string{"https://moodloop.app", "https://staging.moodloop.app"}, cfg.AllowedOrigins)
}
