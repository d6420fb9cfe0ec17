package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	trequire "github.com/stretchr/testify/require"
)

func TestLoadServer(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("REMINDER_LEAD", "15m")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, ,http://localhost:3000")

	cfg, err := LoadServer()
	trequire.NoError(t, err)

	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
	assert.Equal(t, 15*time.Minute, cfg.ReminderLead)
}

func TestLoadServer_Missing(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServer()
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoadServer_BadDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/chat")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "forever")

	_, err := LoadServer()
	assert.Error(t, err)
}

func TestLoadClient_Defaults(t *testing.T) {
	t.Setenv("CHAT_API_URL", "")
	t.Setenv("CHAT_WS_URL", "")
	t.Setenv("CHAT_EMAIL", "lan@example.com")
	t.Setenv("CHAT_PASSWORD", "secret")

	cfg, err := LoadClient()
	trequire.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WSURL)
}
