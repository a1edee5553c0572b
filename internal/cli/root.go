// Package cli implements the hdscan command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/config"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/metrics"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	configFile   string
	outputFormat string
	verbose      bool
	networkFlag  string
	oracleFlag   string
	usedFile     string
	gapLimitFlag int
	recoveryFlag string
	metricsAddr  string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	stopMetrics context.CancelFunc
	enrichOnce  sync.Once

	buildInfo = BuildInfo{}
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// SetBuildInfo records version information injected at link time.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

// formatVersion renders build info, substituting placeholders for empty fields.
func formatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Command group IDs for organized help output.
const (
	groupDiscovery = "discovery"
	groupState     = "state"
	groupConfig    = "config"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hdscan",
	Short: "Gap-limit discovery for HD wallet address chains",
	Long: `hdscan derives HD wallet address chains and finds how far they have been
used, querying an address-activity oracle in gap-limit sized batches.`,
	Example: `  hdscan discover xpub6... --gap-limit 20
  hdscan accounts --scheme bip84-btc
  hdscan addresses list xpub6... --count 10
  hdscan state list`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(cmd); err != nil {
			return err
		}
		cc := NewCommandContext(cfg, logger, formatter)
		cmd.SetContext(SetCmdContext(commandBase(cmd), cc))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version information",
	Long:    `Show the hdscan version, commit and build date.`,
	Example: `  hdscan version`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outln(cmd.OutOrStdout(), "hdscan "+formatVersion(buildInfo))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	enrichOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	// Interrupts cancel a running scan; it exits with the canceled code.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// Format and print error
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		cleanup()
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return scanerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
//
//nolint:gocognit,gocyclo // flag overrides are a flat sequence of checks
func initGlobals(cmd *cobra.Command) error {
	// Determine home directory
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	path := configFile
	if path == "" {
		path = config.Path(home)
	}

	var err error
	cfg, err = config.Load(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && configFile == "":
		cfg = config.Defaults()
		cfg.Home = home
		cfg.Logging.File = strings.Replace(cfg.Logging.File, "~/.hdscan", home, 1)
	case errors.Is(err, os.ErrNotExist):
		return scanerr.WithDetails(scanerr.ErrConfigInvalid, map[string]string{"config": configFile})
	default:
		return err
	}

	// Apply environment variable overrides
	config.ApplyEnvironment(cfg)

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}
	if networkFlag != "" {
		cfg.Discovery.Network = networkFlag
	}
	if oracleFlag != "" {
		cfg.Oracle.Kind = oracleFlag
	}
	if usedFile != "" {
		cfg.Oracle.UsedFile = usedFile
		if oracleFlag == "" {
			cfg.Oracle.Kind = "static"
		}
	}
	if recoveryFlag != "" {
		cfg.Discovery.Recovery = recoveryFlag
	}
	// An explicit --gap-limit beats any recovery preset.
	if cmd.Flags().Changed("gap-limit") {
		cfg.Discovery.GapLimit = gapLimitFlag
	} else if err = cfg.ApplyRecovery(); err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logger
	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	logger, err = config.NewLoggerWithOptions(logLevel, cfg.GetLoggingFile(), config.LogOptions{
		MaxSizeKB: cfg.Logging.MaxSizeKB,
		MaxRolls:  cfg.Logging.MaxRolls,
		JSON:      cfg.Logging.JSON,
	})
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}

	// Initialize formatter
	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	detectedFormat := output.DetectFormat(os.Stdout, explicitFormat)
	formatter = output.NewFormatter(detectedFormat, os.Stdout)

	startMetrics(commandBase(cmd), cfg.Metrics.Addr)
	return nil
}

// startMetrics serves Prometheus metrics in the background for the lifetime
// of the command.
func startMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	ctx, stopMetrics = context.WithCancel(ctx)
	go func() {
		if err := metrics.Serve(ctx, addr); err != nil {
			logger.Error("metrics endpoint %s: %v", addr, err)
		}
	}()
}

// commandBase returns the command context, or Background before execution.
func commandBase(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// cleanup releases resources.
func cleanup() {
	if stopMetrics != nil {
		stopMetrics()
		stopMetrics = nil
	}
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.Version = formatVersion(buildInfo)
	rootCmd.AddGroup(
		&cobra.Group{ID: groupDiscovery, Title: "Discovery:"},
		&cobra.Group{ID: groupState, Title: "Addresses & State:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)
	rootCmd.AddCommand(versionCmd)
	versionCmd.GroupID = groupConfig

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&homeDir, "home", "", "hdscan data directory (default: ~/.hdscan)")
	flags.StringVar(&configFile, "config", "", "config file (default: <home>/config.yaml)")
	flags.StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&networkFlag, "network", "", "network: mainnet, testnet, regtest, signet")
	flags.StringVar(&oracleFlag, "oracle", "", "activity oracle: static, esplora, eth")
	flags.StringVar(&usedFile, "used-file", "", "YAML/JSON list of used addresses (selects the static oracle)")
	flags.IntVar(&gapLimitFlag, "gap-limit", 0, "consecutive unused addresses that end a scan")
	flags.StringVar(&recoveryFlag, "recovery", "", "gap limit preset: standard (20), extended (100), aggressive (200)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = rootCmd.RegisterFlagCompletionFunc("recovery", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return discovery.RecoveryModes(), cobra.ShellCompDirectiveNoFileComp
	})
}
