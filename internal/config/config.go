// Package config provides configuration management for hdscan.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/chainstore"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/fileutil"
	"github.com/mrz1836/hdscan/internal/keynode"
	"github.com/mrz1836/hdscan/internal/oracle"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Store     StoreConfig     `yaml:"store"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// DiscoveryConfig defines scan settings.
type DiscoveryConfig struct {
	GapLimit    int           `yaml:"gap_limit"`
	Recovery    string        `yaml:"recovery,omitempty"` // preset that replaces gap_limit when set
	MaxAccounts int           `yaml:"max_accounts"`
	Scheme      string        `yaml:"scheme"`
	Format      string        `yaml:"format,omitempty"` // empty: the network's canonical format
	Network     string        `yaml:"network"`
	Backend     string        `yaml:"backend"`
	Timeout     time.Duration `yaml:"timeout"`
}

// OracleConfig defines how address activity is looked up.
type OracleConfig struct {
	Kind           string        `yaml:"kind"`
	EsploraURL     string        `yaml:"esplora_url"`
	EthRPC         string        `yaml:"eth_rpc"`
	UsedFile       string        `yaml:"used_file,omitempty"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Burst          int           `yaml:"burst"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	Cache          bool          `yaml:"cache"`
	CacheStaleness time.Duration `yaml:"cache_staleness"`
}

// StoreConfig defines cursor persistence settings.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty: <home>/chains.db
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	JSON      bool   `yaml:"json"`
	MaxSizeKB int64  `yaml:"max_size_kb"`
	MaxRolls  int    `yaml:"max_rolls"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // empty disables the endpoint
}

// Load reads configuration from the specified file, layered over Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, scanerr.WithCause(scanerr.ErrConfigInvalid, fmt.Errorf("parsing %s: %w", path, err))
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	return fileutil.WriteAtomicFunc(path, 0o600, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	})
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default hdscan home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hdscan"
	}
	return filepath.Join(home, ".hdscan")
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// GetHome returns the expanded hdscan home directory.
func (c *Config) GetHome() string {
	return ExpandPath(c.Home)
}

// StorePath returns the cursor database path.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return ExpandPath(c.Store.Path)
	}
	return filepath.Join(c.GetHome(), chainstore.FileName)
}

// CachePath returns the activity cache file path.
func (c *Config) CachePath() string {
	return filepath.Join(c.GetHome(), "activity.json")
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return ExpandPath(c.Logging.File)
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// OracleSettings converts the oracle section for oracle.Build. The cache is
// attached by the caller.
func (c *Config) OracleSettings() oracle.Settings {
	return oracle.Settings{
		Kind:           c.Oracle.Kind,
		UsedFile:       ExpandPath(c.Oracle.UsedFile),
		EsploraURL:     c.Oracle.EsploraURL,
		EthRPC:         c.Oracle.EthRPC,
		RatePerSecond:  c.Oracle.RatePerSecond,
		Burst:          c.Oracle.Burst,
		RetryAttempts:  c.Oracle.RetryAttempts,
		MaxConcurrent:  c.Oracle.MaxConcurrent,
		Network:        c.Discovery.Network,
		CacheStaleness: c.Oracle.CacheStaleness,
	}
}

// ApplyRecovery replaces the gap limit with the preset of the configured
// recovery mode. It does nothing when no mode is set.
func (c *Config) ApplyRecovery() error {
	if strings.TrimSpace(c.Discovery.Recovery) == "" {
		return nil
	}
	mode, err := discovery.ParseRecoveryMode(c.Discovery.Recovery)
	if err != nil {
		return err
	}
	c.Discovery.GapLimit = mode.GapLimit()
	return nil
}

// Validate checks the configuration for values no command can run with.
func (c *Config) Validate() error {
	invalid := func(field, value string) error {
		return scanerr.WithDetails(scanerr.ErrConfigInvalid, map[string]string{field: value})
	}

	if err := discovery.ValidateGapLimit(c.Discovery.GapLimit); err != nil {
		return scanerr.WithCause(scanerr.ErrConfigInvalid, fmt.Errorf("discovery.gap_limit: %w", err))
	}
	if _, err := discovery.ParseRecoveryMode(c.Discovery.Recovery); err != nil {
		return err
	}
	if c.Discovery.MaxAccounts < 1 {
		return invalid("discovery.max_accounts", strconv.Itoa(c.Discovery.MaxAccounts))
	}
	if c.Discovery.Timeout < 0 {
		return invalid("discovery.timeout", c.Discovery.Timeout.String())
	}
	if _, err := discovery.SchemeByName(c.Discovery.Scheme); err != nil {
		return err
	}
	net, err := address.Network(c.Discovery.Network)
	if err != nil {
		return err
	}
	if _, err := address.ByName(c.Discovery.Format, net); err != nil {
		return err
	}
	if _, err := keynode.ParseBackend(c.Discovery.Backend); err != nil {
		return invalid("discovery.backend", c.Discovery.Backend)
	}
	if _, err := oracle.ParseKind(c.Oracle.Kind); err != nil {
		return err
	}
	if err := ValidateEndpointURL(c.Oracle.EsploraURL); err != nil {
		return scanerr.WithCause(scanerr.ErrConfigInvalid, fmt.Errorf("oracle.esplora_url: %w", err))
	}
	if err := ValidateEndpointURL(c.Oracle.EthRPC); err != nil {
		return scanerr.WithCause(scanerr.ErrConfigInvalid, fmt.Errorf("oracle.eth_rpc: %w", err))
	}
	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return invalid("output.default_format", c.Output.DefaultFormat)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "off", "none", "error", "debug":
	default:
		return invalid("logging.level", c.Logging.Level)
	}
	return nil
}
