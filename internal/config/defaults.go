package config

import (
	"time"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/keynode"
	"github.com/mrz1836/hdscan/internal/oracle"
)

// DefaultETHRPCURL is the default Ethereum RPC endpoint.
// Uses PublicNode (Allnodes), a privacy-first provider that requires no API key.
const DefaultETHRPCURL = "https://ethereum-rpc.publicnode.com"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.hdscan",
		Discovery: DiscoveryConfig{
			GapLimit:    discovery.DefaultGapLimit,
			MaxAccounts: discovery.DefaultMaxAccounts,
			Scheme:      discovery.DefaultSchemeName,
			Network:     address.DefaultNetwork,
			Backend:     string(keynode.DefaultBackend),
			Timeout:     discovery.DefaultTimeout,
		},
		Oracle: OracleConfig{
			Kind:           oracle.KindEsplora,
			EsploraURL:     oracle.DefaultEsploraURL,
			EthRPC:         DefaultETHRPCURL,
			RatePerSecond:  5,
			Burst:          10,
			RetryAttempts:  4,
			MaxConcurrent:  oracle.DefaultMaxConcurrent,
			Cache:          true,
			CacheStaleness: 5 * time.Minute,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level:     "error",
			File:      "~/.hdscan/hdscan.log",
			MaxSizeKB: 10 * 1024,
			MaxRolls:  3,
		},
	}
}
