package cli

import (
	"github.com/mrz1836/hdscan/internal/config"
	"github.com/mrz1836/hdscan/internal/discovery"
)

// Compile-time interface checks.
var (
	_ LogWriter        = (*config.Logger)(nil)
	_ discovery.Logger = LogWriter(nil)
)

// LogWriter is the logging surface of a command. Scans log through the same
// value, so it also serves as a discovery.Logger.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}
