package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/cache"
	"github.com/mrz1836/hdscan/internal/config"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/metrics"
	"github.com/mrz1836/hdscan/internal/oracle"
	"github.com/mrz1836/hdscan/internal/output"
)

// OracleFactory builds the activity oracle for a command.
type OracleFactory func(ctx context.Context, s oracle.Settings) (discovery.Querier, func(), error)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config        *config.Config
	Logger        LogWriter
	Formatter     *output.Formatter
	Metrics       *metrics.Metrics
	OracleFactory OracleFactory

	// Stderr receives progress and warnings, keeping stdout parseable.
	Stderr io.Writer
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger LogWriter,
	formatter *output.Formatter,
) *CommandContext {
	return &CommandContext{
		Config:        cfg,
		Logger:        logger,
		Formatter:     formatter,
		Metrics:       metrics.Global,
		OracleFactory: oracle.Build,
		Stderr:        os.Stderr,
	}
}

// WithOracleFactory sets the oracle factory.
func (c *CommandContext) WithOracleFactory(f OracleFactory) *CommandContext {
	c.OracleFactory = f
	return c
}

// WithStderr sets the diagnostics writer.
func (c *CommandContext) WithStderr(w io.Writer) *CommandContext {
	c.Stderr = w
	return c
}

type cmdContextKey struct{}

// SetCmdContext stores cc in ctx.
func SetCmdContext(ctx context.Context, cc *CommandContext) context.Context {
	return context.WithValue(ctx, cmdContextKey{}, cc)
}

// GetCmdContext returns the CommandContext stored on cmd, falling back to one
// built from the globals.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok {
			return cc
		}
	}
	return NewCommandContext(cfg, logger, formatter)
}

// buildQuerier builds the configured oracle. When the activity cache is
// enabled it is loaded from disk and the returned close function saves it.
func (c *CommandContext) buildQuerier(ctx context.Context) (discovery.Querier, func(), error) {
	settings := c.Config.OracleSettings()
	settings.Metrics = c.Metrics

	var (
		storage  *cache.FileStorage
		activity *cache.ActivityCache
	)
	if c.Config.Oracle.Cache {
		storage = cache.NewFileStorage(c.Config.CachePath())
		loaded, err := storage.Load()
		if err != nil {
			c.Logger.Error("activity cache %s: %v", storage.Path(), err)
		}
		if loaded == nil {
			loaded = cache.NewActivityCache()
		}
		activity = loaded
		settings.Cache = activity
	}

	q, closeOracle, err := c.OracleFactory(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		closeOracle()
		if storage == nil {
			return
		}
		if err := storage.Save(activity); err != nil {
			c.Logger.Error("saving activity cache: %v", err)
		}
	}
	return q, closeFn, nil
}

// scanOptions returns discovery options wired to the command's logger and
// metrics, with a progress printer in verbose mode.
func (c *CommandContext) scanOptions() *discovery.Options {
	opts := discovery.DefaultOptions()
	opts.GapLimit = c.Config.Discovery.GapLimit
	opts.Logger = c.Logger
	opts.Metrics = c.Metrics
	if c.Config.IsVerbose() {
		w := c.Stderr
		opts.ProgressCallback = func(u discovery.ProgressUpdate) {
			out(w, "batch %d: %d/%d used from %s (checked %d, gap %d)\n",
				u.Batch, u.UsedInBatch, u.Size, u.FirstAddress, u.Checked, u.Gap)
		}
	}
	return opts
}
