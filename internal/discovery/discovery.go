package discovery

import (
	"strconv"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/mrz1836/hdscan/internal/keynode"
	"github.com/mrz1836/hdscan/internal/metrics"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Default scanning parameters.
const (
	// DefaultGapLimit is the standard HD wallet gap limit.
	// Scanning stops after this many consecutive unused addresses.
	DefaultGapLimit = 20

	// RecoveryGapLimit is the extended gap limit for old wallet recovery.
	RecoveryGapLimit = 100

	// ExtendedRecoveryGapLimit is for very old wallets with large gaps.
	ExtendedRecoveryGapLimit = 200

	// MaxGapLimit is the number of non-hardened child indices. A longer gap
	// can never be observed below a public parent.
	MaxGapLimit = int(keynode.Hardened)

	// DefaultMaxAccounts bounds BIP44 account discovery.
	DefaultMaxAccounts = 20

	// DefaultTimeout is the default context timeout for discovery operations.
	DefaultTimeout = 5 * time.Minute
)

// RecoveryMode selects a gap limit preset.
type RecoveryMode int

const (
	// RecoveryModeStandard uses DefaultGapLimit.
	RecoveryModeStandard RecoveryMode = iota

	// RecoveryModeExtended uses RecoveryGapLimit for old wallets.
	RecoveryModeExtended

	// RecoveryModeAggressive uses ExtendedRecoveryGapLimit.
	RecoveryModeAggressive
)

// RecoveryModes lists the accepted recovery mode names.
func RecoveryModes() []string {
	return []string{"standard", "extended", "aggressive"}
}

// ParseRecoveryMode parses "standard", "extended" or "aggressive".
func ParseRecoveryMode(s string) (RecoveryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return RecoveryModeStandard, nil
	case "extended":
		return RecoveryModeExtended, nil
	case "aggressive":
		return RecoveryModeAggressive, nil
	default:
		return RecoveryModeStandard, scanerr.WithSuggestion(
			scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"recovery": s}),
			"use one of: "+strings.Join(RecoveryModes(), ", "),
		)
	}
}

// String returns the mode name.
func (m RecoveryMode) String() string {
	switch m {
	case RecoveryModeExtended:
		return "extended"
	case RecoveryModeAggressive:
		return "aggressive"
	default:
		return "standard"
	}
}

// GapLimit returns the gap limit of the mode.
func (m RecoveryMode) GapLimit() int {
	switch m {
	case RecoveryModeExtended:
		return RecoveryGapLimit
	case RecoveryModeAggressive:
		return ExtendedRecoveryGapLimit
	default:
		return DefaultGapLimit
	}
}

// ProgressUpdate reports one folded query batch.
type ProgressUpdate struct {
	// Batch is the 1-based batch number within the run.
	Batch int

	// FirstAddress is the first address of the batch.
	FirstAddress string

	// Size is the number of addresses in the batch.
	Size int

	// UsedInBatch is the number of batch addresses the oracle reported used.
	UsedInBatch int

	// Checked is the running number of addresses checked.
	Checked int

	// Gap is the current run of consecutive unused addresses.
	Gap int
}

// ProgressCallback is called after each batch is folded.
// It may be called from several goroutines during account discovery.
type ProgressCallback func(ProgressUpdate)

// Logger is the interface for discovery logging.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options configures a scan.
type Options struct {
	// GapLimit is the number of consecutive unused addresses that ends a scan,
	// and the size of every query batch. Default: DefaultGapLimit (20).
	GapLimit int

	// ProgressCallback receives an update per batch.
	ProgressCallback ProgressCallback

	// Logger receives debug and error messages. Default: discards.
	Logger Logger

	// Clock measures scan duration. Default: the system clock.
	Clock clock.Clock

	// Metrics records scan counters. Nil disables recording.
	Metrics *metrics.Metrics
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		GapLimit: DefaultGapLimit,
		Logger:   nopLogger{},
		Clock:    clock.NewDefaultClock(),
	}
}

// Validate checks that the options are valid.
func (o *Options) Validate() error {
	return ValidateGapLimit(o.GapLimit)
}

// ValidateGapLimit checks that n is within 1..MaxGapLimit.
func ValidateGapLimit(n int) error {
	if n < 1 || n > MaxGapLimit {
		return scanerr.WithDetails(scanerr.ErrInvalidGapLimit, map[string]string{"value": strconv.Itoa(n)})
	}
	return nil
}

// withDefaults returns a copy of o with nil collaborators filled in.
func (o *Options) withDefaults() *Options {
	out := DefaultOptions()
	if o == nil {
		return out
	}
	cp := *o
	if cp.Logger == nil {
		cp.Logger = out.Logger
	}
	if cp.Clock == nil {
		cp.Clock = out.Clock
	}
	return &cp
}

// Result is the outcome of a completed gap-limit scan.
type Result struct {
	// Used is the number of addresses up to and including the last used one
	// (Checked minus the trailing gap).
	Used int `json:"used"`

	// Checked is the number of addresses derived and queried by the run.
	Checked int `json:"checked"`

	// Batches is the number of queries issued.
	Batches int `json:"batches"`

	// Duration is how long the scan took.
	Duration time.Duration `json:"-"`
}

// Gap returns the number of trailing unused addresses.
func (r Result) Gap() int {
	return r.Checked - r.Used
}
