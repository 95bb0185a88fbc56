package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"terranet/pricing"
)

const testConfig = `
listen: ":9090"
env: test
database: file:onboardd-test.db
data_dir: /tmp/onboardd-orders
cors:
  allowed_origins:
    - http://localhost:63342
    - http://localhost
  allow_credentials: true
rate_limits:
  quotes:
    requests_per_minute: 120
    burst: 20
  checkout:
    requests_per_minute: 30
    burst: 5
pricing:
  programs:
    REMOTE_ONLY:
      - up_to_acres: 250
        rate_per_acre: "7.00"
      - rate_per_acre: "6.50"
    SPRAYER_PLUS_REMOTE:
      - rate_per_acre: "5.00"
  fees:
    sprayer_setup: "2000.00"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onboardd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.ListenAddress)
	require.Equal(t, "test", cfg.Environment)
	require.Equal(t, []string{"http://localhost:63342", "http://localhost"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, 120.0, cfg.RateLimits.Quotes.RequestsPerMinute)
	require.Equal(t, pricing.MustParseAmount("2000.00"), cfg.Pricing.Fees.SprayerSetup)
	require.False(t, cfg.PostgresDSN())
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
pricing:
  programs:
    REMOTE_ONLY:
      - rate_per_acre: "7.00"
    SPRAYER_PLUS_REMOTE:
      - rate_per_acre: "5.00"
`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, "orders", cfg.DataDir)
	require.Equal(t, "onboardd.db", cfg.DatabaseDSN)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ONBOARD_LISTEN", ":7001")
	t.Setenv("ONBOARD_DB_DSN", "postgres://onboard:secret@db/onboard")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.Equal(t, ":7001", cfg.ListenAddress)
	require.True(t, cfg.PostgresDSN())
}

func TestLoadRejectsBrokenSchedule(t *testing.T) {
	broken := `
pricing:
  programs:
    REMOTE_ONLY:
      - rate_per_acre: "7.00"
`
	_, err := Load(writeConfig(t, broken))
	var ce *pricing.ConfigurationError
	require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %v", err)
}

func TestLoadRejectsTelemetryWithoutEndpoint(t *testing.T) {
	body := testConfig + `
telemetry:
  enabled: true
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}
