package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

var (
	// ErrInvalidURL indicates an endpoint URL that cannot be used.
	ErrInvalidURL = errors.New("invalid endpoint URL")

	// ErrInsecureURL indicates a plaintext endpoint on a non-loopback host.
	ErrInsecureURL = errors.New("insecure endpoint URL: use https or wss for remote hosts")
)

// Environment variable names.
const (
	EnvHome         = "HDSCAN_HOME"
	EnvGapLimit     = "HDSCAN_GAP_LIMIT"
	EnvRecovery     = "HDSCAN_RECOVERY"
	EnvNetwork      = "HDSCAN_NETWORK"
	EnvOracle       = "HDSCAN_ORACLE"
	EnvEsploraURL   = "HDSCAN_ESPLORA_URL"
	EnvETHRPC       = "HDSCAN_ETH_RPC"
	EnvOutputFormat = "HDSCAN_OUTPUT_FORMAT"
	EnvVerbose      = "HDSCAN_VERBOSE"
	EnvLogLevel     = "HDSCAN_LOG_LEVEL"
	EnvMetricsAddr  = "HDSCAN_METRICS_ADDR"
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvGapLimit); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Discovery.GapLimit = n
		}
	}

	if v := os.Getenv(EnvRecovery); v != "" {
		cfg.Discovery.Recovery = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Discovery.Network = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOracle); v != "" {
		cfg.Oracle.Kind = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvEsploraURL); v != "" {
		cfg.Oracle.EsploraURL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvETHRPC); v != "" {
		cfg.Oracle.EthRPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = strings.TrimSpace(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided endpoints that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}

// ValidateEndpointURL checks an oracle endpoint. Empty is accepted. Remote
// hosts must use https or wss; http and ws are allowed for loopback only.
func ValidateEndpointURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return nil
	case "http", "ws":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInsecureURL, raw)
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
