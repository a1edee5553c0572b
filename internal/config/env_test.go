package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"on", "on", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"no", "no", false},
		{"off", "off", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, parseBool(tc.input))
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean URL", "https://blockstream.info/api", "https://blockstream.info/api"},
		{"surrounding spaces", "  https://mempool.space/api  ", "https://mempool.space/api"},
		{"localhost", "http://localhost:3000", "http://localhost:3000"},
		{"websocket", "wss://mainnet.infura.io/ws", "wss://mainnet.infura.io/ws"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SanitizeURL(tc.input))
		})
	}
}

func TestValidateEndpointURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"https", "https://blockstream.info/api", nil},
		{"wss", "wss://mainnet.infura.io/ws", nil},
		{"localhost http", "http://localhost:3000", nil},
		{"loopback ip", "http://127.0.0.1:8545", nil},
		{"ipv6 loopback", "http://[::1]:8545", nil},
		{"empty", "", nil},
		{"remote http", "http://example.com/api", ErrInsecureURL},
		{"javascript", "javascript:alert(1)", ErrInvalidURL},
		{"file", "file:///etc/passwd", ErrInvalidURL},
		{"missing scheme", "example.com:8545", ErrInvalidURL},
		{"unparsable", "https://exa mple.com", ErrInvalidURL},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEndpointURL(tc.url)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestApplyEnvironment(t *testing.T) {
	// Cannot run in parallel because we modify environment variables
	cfg := Defaults()

	t.Setenv(EnvHome, "/custom/home")
	t.Setenv(EnvGapLimit, "50")
	t.Setenv(EnvRecovery, " Extended ")
	t.Setenv(EnvNetwork, " TestNet ")
	t.Setenv(EnvOracle, "ETH")
	t.Setenv(EnvEsploraURL, "  https://mempool.space/api ")
	t.Setenv(EnvETHRPC, "https://rpc.example.com")
	t.Setenv(EnvOutputFormat, "JSON")
	t.Setenv(EnvVerbose, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvMetricsAddr, ":9101")

	ApplyEnvironment(cfg)

	assert.Equal(t, "/custom/home", cfg.Home)
	assert.Equal(t, 50, cfg.Discovery.GapLimit)
	assert.Equal(t, "extended", cfg.Discovery.Recovery)
	assert.Equal(t, "testnet", cfg.Discovery.Network)
	assert.Equal(t, "eth", cfg.Oracle.Kind)
	assert.Equal(t, "https://mempool.space/api", cfg.Oracle.EsploraURL)
	assert.Equal(t, "https://rpc.example.com", cfg.Oracle.EthRPC)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9101", cfg.Metrics.Addr)
}

func TestApplyEnvironment_InvalidGapLimit(t *testing.T) {
	for _, value := range []string{"abc", "0", "-5"} {
		t.Run(value, func(t *testing.T) {
			cfg := Defaults()
			t.Setenv(EnvGapLimit, value)
			ApplyEnvironment(cfg)
			assert.Equal(t, 20, cfg.Discovery.GapLimit)
		})
	}
}

func TestApplyEnvironment_NoColor(t *testing.T) {
	cfg := Defaults()

	t.Setenv(EnvNoColor, "1")
	ApplyEnvironment(cfg)

	assert.Equal(t, "never", cfg.Output.Color)
}
