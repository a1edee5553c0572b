package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/config"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// errTestRandom is used for testing non-hdscan error handling.
var errTestRandom = scanerr.New("TEST_ERROR", "some random error")

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{
			name: "all fields populated",
			info: BuildInfo{Version: "v1.2.3", Commit: "abc1234", Date: "2026-01-15"},
			want: "v1.2.3 (commit: abc1234, built: 2026-01-15)",
		},
		{
			name: "all fields empty",
			info: BuildInfo{},
			want: "dev (commit: unknown, built: unknown)",
		},
		{
			name: "only version empty",
			info: BuildInfo{Commit: "def5678", Date: "2026-02-20"},
			want: "dev (commit: def5678, built: 2026-02-20)",
		},
		{
			name: "only commit empty",
			info: BuildInfo{Version: "v2.0.0", Date: "2026-03-25"},
			want: "v2.0.0 (commit: unknown, built: 2026-03-25)",
		},
		{
			name: "only date empty",
			info: BuildInfo{Version: "v3.0.0", Commit: "ghi9012"},
			want: "v3.0.0 (commit: ghi9012, built: unknown)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatVersion(tc.info))
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: scanerr.ExitSuccess},
		{name: "general error", err: scanerr.ErrGeneral, want: scanerr.ExitGeneral},
		{name: "invalid input", err: scanerr.ErrInvalidInput, want: scanerr.ExitInput},
		{name: "invalid key", err: scanerr.ErrInvalidKey, want: scanerr.ExitInput},
		{name: "invalid gap limit", err: scanerr.ErrInvalidGapLimit, want: scanerr.ExitInput},
		{name: "not found", err: scanerr.ErrNotFound, want: scanerr.ExitNotFound},
		{name: "cursor not found", err: scanerr.ErrCursorNotFound, want: scanerr.ExitNotFound},
		{name: "unknown config key", err: scanerr.ErrUnknownConfigKey, want: scanerr.ExitNotFound},
		{name: "scan canceled", err: scanerr.ErrScanCanceled, want: scanerr.ExitCanceled},
		{name: "network error", err: scanerr.ErrNetworkError, want: scanerr.ExitGeneral},
		{name: "foreign error returns general", err: errTestRandom, want: scanerr.ExitGeneral},
		{
			name: "wrapped error preserves exit code",
			err:  scanerr.Wrap(scanerr.ErrUnknownNetwork, "loading chain"),
			want: scanerr.ExitInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

// saveGlobals snapshots package state mutated by initGlobals.
// NOT parallel: callers mutate package-level globals.
func saveGlobals(t *testing.T) {
	t.Helper()
	origCfg, origLogger, origFormatter := cfg, logger, formatter
	origHome, origConfig, origOutput, origVerbose := homeDir, configFile, outputFormat, verbose
	origNetwork, origOracle, origUsed, origGap := networkFlag, oracleFlag, usedFile, gapLimitFlag
	origRecovery := recoveryFlag
	t.Cleanup(func() {
		cleanup()
		cfg, logger, formatter = origCfg, origLogger, origFormatter
		homeDir, configFile, outputFormat, verbose = origHome, origConfig, origOutput, origVerbose
		networkFlag, oracleFlag, usedFile, gapLimitFlag = origNetwork, origOracle, origUsed, origGap
		recoveryFlag = origRecovery
	})
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestGlobalGetters(t *testing.T) {
	saveGlobals(t)

	testCfg := config.Defaults()
	testLogger := config.NullLogger()
	testFmt := output.NewFormatter(output.FormatText, nil)
	cfg, logger, formatter = testCfg, testLogger, testFmt

	assert.Same(t, testCfg, Config())
	assert.Same(t, testLogger, Logger())
	assert.Same(t, testFmt, Formatter())
}

func TestCleanup(t *testing.T) {
	origLogger := logger
	defer func() { logger = origLogger }()

	t.Run("nil logger", func(t *testing.T) {
		logger = nil
		assert.NotPanics(t, cleanup)
	})

	t.Run("closed logger", func(t *testing.T) {
		closed, err := config.NewLogger(config.ParseLogLevel("debug"), filepath.Join(t.TempDir(), "test.log"))
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		logger = closed
		assert.NotPanics(t, cleanup)
	})
}

func TestInitGlobals_DefaultConfig(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()

	require.NoError(t, initGlobals(newInitCmd()))

	require.NotNil(t, cfg)
	require.NotNil(t, logger)
	require.NotNil(t, formatter)
	assert.Equal(t, homeDir, cfg.Home)
	assert.Equal(t, filepath.Join(homeDir, "hdscan.log"), cfg.GetLoggingFile())
}

func TestInitGlobals_EnvHome(t *testing.T) {
	saveGlobals(t)
	home := t.TempDir()
	homeDir = ""
	t.Setenv(config.EnvHome, home)

	require.NoError(t, initGlobals(newInitCmd()))
	assert.Equal(t, home, cfg.Home)
}

func TestInitGlobals_FlagOverrides(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()
	verbose = true
	outputFormat = "json"
	networkFlag = "testnet"
	usedFile = "used.yaml"

	require.NoError(t, initGlobals(newInitCmd()))

	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.Equal(t, "testnet", cfg.Discovery.Network)
	assert.Equal(t, "static", cfg.Oracle.Kind, "--used-file selects the static oracle")
	assert.Equal(t, "used.yaml", cfg.Oracle.UsedFile)
	assert.True(t, formatter.IsJSON())
}

func TestInitGlobals_OracleFlagWinsOverUsedFile(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()
	oracleFlag = "eth"
	usedFile = "used.yaml"

	require.NoError(t, initGlobals(newInitCmd()))
	assert.Equal(t, "eth", cfg.Oracle.Kind)
}

func TestInitGlobals_GapLimitOnlyWhenChanged(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()

	cmd := newInitCmd()
	cmd.Flags().IntVar(&gapLimitFlag, "gap-limit", 0, "")
	require.NoError(t, initGlobals(cmd))
	assert.Equal(t, config.Defaults().Discovery.GapLimit, cfg.Discovery.GapLimit)

	require.NoError(t, cmd.Flags().Set("gap-limit", "7"))
	require.NoError(t, initGlobals(cmd))
	assert.Equal(t, 7, cfg.Discovery.GapLimit)
}

func TestInitGlobals_InvalidGapLimit(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()

	cmd := newInitCmd()
	cmd.Flags().IntVar(&gapLimitFlag, "gap-limit", 0, "")
	require.NoError(t, cmd.Flags().Set("gap-limit", "0"))

	err := initGlobals(cmd)
	require.Error(t, err)
	assert.True(t, scanerr.Is(err, scanerr.ErrConfigInvalid))
}

func TestInitGlobals_GapLimitAboveMaximum(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()

	cmd := newInitCmd()
	cmd.Flags().IntVar(&gapLimitFlag, "gap-limit", 0, "")
	require.NoError(t, cmd.Flags().Set("gap-limit", strconv.Itoa(discovery.MaxGapLimit+1)))

	err := initGlobals(cmd)
	require.ErrorIs(t, err, scanerr.ErrConfigInvalid)
	require.ErrorIs(t, err, scanerr.ErrInvalidGapLimit)
}

func TestInitGlobals_Recovery(t *testing.T) {
	tests := []struct {
		name     string
		recovery string
		gapFlag  string
		want     int
	}{
		{name: "standard", recovery: "standard", want: discovery.DefaultGapLimit},
		{name: "extended", recovery: "extended", want: discovery.RecoveryGapLimit},
		{name: "aggressive", recovery: "Aggressive", want: discovery.ExtendedRecoveryGapLimit},
		{name: "gap limit flag wins", recovery: "aggressive", gapFlag: "35", want: 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveGlobals(t)
			homeDir = t.TempDir()
			recoveryFlag = tt.recovery

			cmd := newInitCmd()
			cmd.Flags().IntVar(&gapLimitFlag, "gap-limit", 0, "")
			if tt.gapFlag != "" {
				require.NoError(t, cmd.Flags().Set("gap-limit", tt.gapFlag))
			}

			require.NoError(t, initGlobals(cmd))
			assert.Equal(t, tt.want, cfg.Discovery.GapLimit)
		})
	}
}

func TestInitGlobals_RecoveryFromConfig(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()

	c := config.Defaults()
	c.Discovery.GapLimit = 40
	c.Discovery.Recovery = "extended"
	require.NoError(t, config.Save(c, config.Path(homeDir)))

	require.NoError(t, initGlobals(newInitCmd()))
	assert.Equal(t, discovery.RecoveryGapLimit, cfg.Discovery.GapLimit)
}

func TestInitGlobals_InvalidRecovery(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()
	recoveryFlag = "reckless"

	err := initGlobals(newInitCmd())
	require.ErrorIs(t, err, scanerr.ErrInvalidInput)
	assert.Equal(t, scanerr.ExitInput, scanerr.ExitCode(err))
}

func TestInitGlobals_WithExistingConfig(t *testing.T) {
	saveGlobals(t)
	home := t.TempDir()

	written := config.Defaults()
	written.Home = home
	written.Logging.Level = "debug"
	written.Logging.File = filepath.Join(home, "custom.log")
	written.Discovery.GapLimit = 50
	require.NoError(t, config.Save(written, config.Path(home)))

	homeDir = home
	require.NoError(t, initGlobals(newInitCmd()))

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Discovery.GapLimit)
}

func TestInitGlobals_MissingExplicitConfig(t *testing.T) {
	saveGlobals(t)
	homeDir = t.TempDir()
	configFile = filepath.Join(homeDir, "missing.yaml")

	err := initGlobals(newInitCmd())
	require.Error(t, err)
	assert.True(t, scanerr.Is(err, scanerr.ErrConfigInvalid))
}

func TestExecute_Version(t *testing.T) {
	saveGlobals(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version", "--home", t.TempDir()})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	SetBuildInfo(BuildInfo{Version: "v1.0.0-test", Commit: "abc", Date: "2026-01-01"})
	t.Cleanup(func() { SetBuildInfo(BuildInfo{}) })

	require.NoError(t, Execute())
	assert.Equal(t, "hdscan v1.0.0-test (commit: abc, built: 2026-01-01)\n", buf.String())
}
