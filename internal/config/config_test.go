package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "natours_db", cfg.PostgresDB)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "usd", cfg.CheckoutCurrency)
	assert.Equal(t, 60, cfg.GeoCacheTTL)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_InvalidGatewayURL(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_URL", "not-a-url")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PAYMENT_GATEWAY_URL")
}

func TestLoad_CustomGatewaySettings(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_URL", "https://api.stripe.com")
	t.Setenv("PAYMENT_GATEWAY_WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("CHECKOUT_CURRENCY", "eur")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://api.stripe.com", cfg.GatewayURL)
	assert.Equal(t, "whsec_abc", cfg.GatewayWebhookSecret)
	assert.Equal(t, "eur", cfg.CheckoutCurrency)
}
