package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_TYPE", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("DEBUG", "")
	t.Setenv("PAGE_ID", "")
	t.Setenv("SITE_URL", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DBTypeFile, cfg.Database.Type)
	assert.Equal(t, "1", cfg.PageID)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Debug)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEBUG", "true")
	t.Setenv("SITE_URL", "https://forum.example/")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/threads?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "https://forum.example", cfg.SiteURL)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"PORT": "eighty"}},
		{"unknown db", map[string]string{"DB_TYPE": "sqlite"}},
		{"mongo without uri", map[string]string{"DB_TYPE": "mongodb", "MONGODB_URI": ""}},
		{"postgres without user", map[string]string{"DB_TYPE": "postgres", "DATABASE_URL": "", "DB_USER": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetSSLModeFromURI(t *testing.T) {
	assert.Equal(t, "verify-full", getSSLModeFromURI("postgres://h/db?user=x&sslmode=verify-full"))
	assert.Equal(t, "require", getSSLModeFromURI("postgres://h/db"))
}
