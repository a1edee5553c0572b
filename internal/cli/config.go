package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/hdscan/internal/config"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify hdscan configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.hdscan/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  hdscan config init
  hdscan config init --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, after environment and flag overrides.`,
	Example: `  hdscan config show
  hdscan config show -o json`,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value by its dotted path.`,
	Example: `  hdscan config get discovery.gap_limit
  hdscan config get oracle.esplora_url`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its dotted path.
The configuration file is validated and updated immediately.`,
	Example: `  hdscan config set discovery.gap_limit 50
  hdscan config set oracle.kind eth
  hdscan config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.GroupID = groupConfig
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
	configGetCmd.ValidArgsFunction = completeConfigPaths
	configSetCmd.ValidArgsFunction = completeConfigPaths
}

func completeConfigPaths(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sortedConfigPaths(), cobra.ShellCompDirectiveNoFileComp
}

// configKey reads and writes one dotted configuration path.
type configKey struct {
	get func(*config.Config) string
	set func(*config.Config, string) error
}

func stringKey(field func(*config.Config) *string) configKey {
	return configKey{
		get: func(c *config.Config) string { return *field(c) },
		set: func(c *config.Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(field func(*config.Config) *int) configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return invalidValue(v, "an integer")
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(field func(*config.Config) *bool) configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return invalidValue(v, "true or false")
			}
			*field(c) = b
			return nil
		},
	}
}

func durationKey(field func(*config.Config) *time.Duration) configKey {
	return configKey{
		get: func(c *config.Config) string { return field(c).String() },
		set: func(c *config.Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return invalidValue(v, "a duration such as 30s or 5m")
			}
			*field(c) = d
			return nil
		},
	}
}

func invalidValue(value, want string) error {
	return scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"value": value, "valid": want})
}

//nolint:gochecknoglobals // static lookup table
var configKeys = map[string]configKey{
	"home":                   stringKey(func(c *config.Config) *string { return &c.Home }),
	"discovery.gap_limit":    intKey(func(c *config.Config) *int { return &c.Discovery.GapLimit }),
	"discovery.recovery":     stringKey(func(c *config.Config) *string { return &c.Discovery.Recovery }),
	"discovery.max_accounts": intKey(func(c *config.Config) *int { return &c.Discovery.MaxAccounts }),
	"discovery.scheme":       stringKey(func(c *config.Config) *string { return &c.Discovery.Scheme }),
	"discovery.format":       stringKey(func(c *config.Config) *string { return &c.Discovery.Format }),
	"discovery.network":      stringKey(func(c *config.Config) *string { return &c.Discovery.Network }),
	"discovery.backend":      stringKey(func(c *config.Config) *string { return &c.Discovery.Backend }),
	"discovery.timeout":      durationKey(func(c *config.Config) *time.Duration { return &c.Discovery.Timeout }),
	"oracle.kind":            stringKey(func(c *config.Config) *string { return &c.Oracle.Kind }),
	"oracle.esplora_url":     stringKey(func(c *config.Config) *string { return &c.Oracle.EsploraURL }),
	"oracle.eth_rpc":         stringKey(func(c *config.Config) *string { return &c.Oracle.EthRPC }),
	"oracle.used_file":       stringKey(func(c *config.Config) *string { return &c.Oracle.UsedFile }),
	"oracle.burst":           intKey(func(c *config.Config) *int { return &c.Oracle.Burst }),
	"oracle.retry_attempts":  intKey(func(c *config.Config) *int { return &c.Oracle.RetryAttempts }),
	"oracle.max_concurrent":  intKey(func(c *config.Config) *int { return &c.Oracle.MaxConcurrent }),
	"oracle.cache":           boolKey(func(c *config.Config) *bool { return &c.Oracle.Cache }),
	"oracle.cache_staleness": durationKey(func(c *config.Config) *time.Duration { return &c.Oracle.CacheStaleness }),
	"oracle.rate_per_second": rateKey(),
	"store.path":             stringKey(func(c *config.Config) *string { return &c.Store.Path }),
	"output.default_format":  stringKey(func(c *config.Config) *string { return &c.Output.DefaultFormat }),
	"output.color":           stringKey(func(c *config.Config) *string { return &c.Output.Color }),
	"output.verbose":         boolKey(func(c *config.Config) *bool { return &c.Output.Verbose }),
	"logging.level":          stringKey(func(c *config.Config) *string { return &c.Logging.Level }),
	"logging.file":           stringKey(func(c *config.Config) *string { return &c.Logging.File }),
	"logging.json":           boolKey(func(c *config.Config) *bool { return &c.Logging.JSON }),
	"logging.max_rolls":      intKey(func(c *config.Config) *int { return &c.Logging.MaxRolls }),
	"metrics.addr":           stringKey(func(c *config.Config) *string { return &c.Metrics.Addr }),
}

func rateKey() configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.FormatFloat(c.Oracle.RatePerSecond, 'f', -1, 64) },
		set: func(c *config.Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return invalidValue(v, "a non-negative number")
			}
			c.Oracle.RatePerSecond = f
			return nil
		},
	}
}

// lookupConfigKey returns the accessor for path or ErrUnknownConfigKey.
func lookupConfigKey(path string) (configKey, error) {
	key, ok := configKeys[path]
	if !ok {
		return configKey{}, scanerr.WithSuggestion(
			scanerr.WithDetails(scanerr.ErrUnknownConfigKey, map[string]string{"path": path}),
			"run 'hdscan config show' to list configuration paths",
		)
	}
	return key, nil
}

// configValues flattens c into its dotted paths.
func configValues(c *config.Config) map[string]string {
	values := make(map[string]string, len(configKeys))
	for path, key := range configKeys {
		values[path] = key.get(c)
	}
	return values
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	c := GetCmdContext(cmd).Config
	configPath := config.Path(c.GetHome())

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return scanerr.WithSuggestion(
			scanerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = c.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - discovery.gap_limit: Consecutive unused addresses that end a scan")
	outln(w, "  - oracle.kind: Activity oracle (static, esplora, eth)")
	outln(w, "  - oracle.esplora_url / oracle.eth_rpc: Oracle endpoints")
	outln(w, "  - logging.level: Log level (off/error/debug)")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	if cc.Formatter.Format() == output.FormatJSON {
		return output.NewFormatter(output.FormatJSON, w).Print(configValues(cc.Config))
	}

	data, err := yaml.Marshal(cc.Config)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key, err := lookupConfigKey(args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), key.get(GetCmdContext(cmd).Config))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]
	key, err := lookupConfigKey(path)
	if err != nil {
		return err
	}

	// Edit the file as written, not the overridden effective config.
	configPath := config.Path(GetCmdContext(cmd).Config.GetHome())
	current, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if err := key.set(current, value); err != nil {
		return err
	}
	if err := current.Validate(); err != nil {
		return err
	}
	if err := config.Save(current, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

// sortedConfigPaths lists every settable path.
func sortedConfigPaths() []string {
	paths := make([]string, 0, len(configKeys))
	for path := range configKeys {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
