package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_SESSION_TTL_MINUTES", "")
	t.Setenv("STORAGE_PROVIDER", "")
	t.Setenv("BOT_SESSION_STORE", "")
	t.Setenv("BOT_SUBMIT_MAX_ATTEMPTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "memory", cfg.Bot.SessionStore)
	assert.Equal(t, 30*time.Minute, cfg.Bot.SessionTTL())
	assert.Equal(t, 3, cfg.Bot.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Realtime.WriteTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_BACKEND_URL", "http://backend:8080/")
	t.Setenv("SERVICE_TOKEN", "shared")
	t.Setenv("BOT_SERVICE_TOKEN", "")
	t.Setenv("BOT_SUBMIT_BASE_DELAY_MS", "250")
	t.Setenv("BOT_SESSION_STORE", "REDIS")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100123")
	t.Setenv("APP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8080", cfg.Bot.BackendURL)
	assert.Equal(t, "shared", cfg.Bot.ServiceToken)
	assert.Equal(t, "shared", cfg.Auth.ServiceToken)
	assert.Equal(t, 250*time.Millisecond, cfg.Bot.BaseDelay())
	assert.Equal(t, "redis", cfg.Bot.SessionStore)
	assert.Equal(t, int64(-100123), cfg.Notification.AdminChatID)
	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "ftp")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_PROVIDER", "s3")
	t.Setenv("REDIS_DB", "zero")
	_, err = Load()
	assert.Error(t, err)
}

func TestIntHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_TEST_INT", "abc")
	t.Setenv("X_TEST_BOOL", "maybe")
	assert.Equal(t, 7, getEnvAsInt("X_TEST_INT", 7))
	assert.True(t, getEnvAsBool("X_TEST_BOOL", true))
}
