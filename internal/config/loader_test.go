package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimal environment for a successful Load.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://paybridge:pw@localhost:5432/paybridge")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test_456")
	t.Setenv("TELEGRAM_BOT_TOKEN", "12345:test-token")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "paybridge", cfg.Service)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "native", cfg.Billing.VerifierMode)
	assert.Zero(t, cfg.Telegram.AdminID, "admin id should default to disabled")
	assert.Equal(t, 10, cfg.Database.MaxConns)
}

func TestLoad_SecretsAreRedacted(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "***REDACTED***", cfg.Telegram.BotToken.String())
	assert.Equal(t, "12345:test-token", cfg.Telegram.BotToken.Unmask())
	assert.Equal(t, "whsec_test_456", cfg.Billing.StripeWebhookSecret.Unmask())
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrTypeValidation, cfgErr.Type)
	assert.Contains(t, cfgErr.Message, "StripeWebhookSecret")
}

func TestLoad_InvalidVerifierMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_VERIFIER_MODE", "handshake")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrTypeValidation, cfgErr.Type)
}

func TestLoad_AdminIDParsed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_ADMIN_ID", "987654321")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), cfg.Telegram.AdminID)
}

func TestLoad_EnvironmentOneOf(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production") // not in the allowed set

	_, err := Load()
	require.Error(t, err)
}
