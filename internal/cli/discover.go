package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/chainstore"
	"github.com/mrz1836/hdscan/internal/discovery"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// discoverFormat overrides the configured address format.
	discoverFormat string
	// discoverStart is the first child index to scan.
	discoverStart uint32
	// discoverSave stores the resulting cursor under this key.
	discoverSave string
	// discoverResume continues from the cursor stored under this key.
	discoverResume string
)

// discoverCmd runs a gap-limit scan over one address chain.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var discoverCmd = &cobra.Command{
	Use:   "discover [xpub]",
	Short: "Find how far an address chain has been used",
	Long: `Derive addresses from an extended public key and query them in batches of
the gap limit until a run of gap-limit consecutive unused addresses is found.

The key is the parent of the chain (for BIP44, the account/change node), so
the scanned addresses are its children start, start+1, ...`,
	Example: `  hdscan discover xpub6... --gap-limit 20
  hdscan discover xpub6... --format p2wpkh --save main/0
  hdscan discover --resume main/0
  hdscan discover xpub6... --recovery extended
  hdscan discover xpub6... --used-file used.yaml -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.GroupID = groupDiscovery

	discoverCmd.Flags().StringVar(&discoverFormat, "format", "", "address format: p2pkh, p2wpkh, eth (default: configured)")
	discoverCmd.Flags().Uint32Var(&discoverStart, "start", 0, "first child index to scan")
	discoverCmd.Flags().StringVar(&discoverSave, "save", "", "store the scan cursor under this key")
	discoverCmd.Flags().StringVar(&discoverResume, "resume", "", "continue from the cursor stored under this key")
	discoverCmd.MarkFlagsMutuallyExclusive("resume", "start")
}

// DiscoverResponse is the JSON response for the discover command.
type DiscoverResponse struct {
	Key         string `json:"key,omitempty"`
	Network     string `json:"network"`
	Format      string `json:"format"`
	BaseIndex   uint32 `json:"base_index"`
	StartIndex  uint32 `json:"start_index"`
	Used        int    `json:"used"`
	Checked     int    `json:"checked"`
	Batches     int    `json:"batches"`
	GapLimit    int    `json:"gap_limit"`
	NextIndex   uint32 `json:"next_index"`
	NextAddress string `json:"next_address"`
	DurationMs  int64  `json:"duration_ms"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	src, start, err := discoverSource(cc, args)
	if err != nil {
		return err
	}
	saveKey := discoverSave
	if saveKey == "" {
		saveKey = discoverResume
	}

	chain, err := cc.newChain(src, start)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, cc.Config.Discovery.Timeout)
	defer cancel()

	q, closeQuerier, err := cc.buildQuerier(ctx)
	if err != nil {
		return err
	}
	defer closeQuerier()

	opts := cc.scanOptions()
	cc.Logger.Debug("discover: %s from index %d, gap limit %d", describeChain(src), start, opts.GapLimit)

	res, err := discovery.NewScanner(q, opts).Discover(ctx, chain)
	if err != nil {
		return err
	}
	discovery.Rewind(chain, res)
	next, err := chain.Get()
	if err != nil {
		return err
	}

	// Counts span the whole chain from its base, including resumed ranges.
	resp := DiscoverResponse{
		Key:         saveKey,
		Network:     src.Network,
		Format:      chain.Encoder().Name(),
		BaseIndex:   src.Base,
		StartIndex:  start,
		Used:        int(chain.K() - src.Base),
		Checked:     int(start-src.Base) + res.Checked,
		Batches:     res.Batches,
		GapLimit:    opts.GapLimit,
		NextIndex:   chain.K(),
		NextAddress: next,
		DurationMs:  res.Duration.Milliseconds(),
	}

	if saveKey != "" {
		if err := saveDiscoverCursor(cc, src, resp); err != nil {
			return err
		}
	}

	return emit(cmd, cc, resp, func(w io.Writer) { displayDiscoverText(w, resp) })
}

// discoverSource resolves the chain and start index from arguments or
// --resume.
func discoverSource(cc *CommandContext, args []string) (chainSource, uint32, error) {
	if discoverResume == "" {
		if len(args) != 1 {
			return chainSource{}, 0, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "pass an extended public key or --resume KEY")
		}
		return cc.sourceFromKey(args[0], discoverFormat, discoverStart), discoverStart, nil
	}

	if len(args) != 0 {
		return chainSource{}, 0, scanerr.WithSuggestion(scanerr.ErrInvalidInput, "do not pass an extended key together with --resume")
	}
	src, err := cc.sourceFromState(discoverResume)
	if err != nil {
		return chainSource{}, 0, err
	}
	return src, src.Cursor.NextIndex, nil
}

func saveDiscoverCursor(cc *CommandContext, src chainSource, resp DiscoverResponse) error {
	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cursor := chainstore.Cursor{
		Key:       resp.Key,
		Network:   resp.Network,
		Format:    resp.Format,
		Parent:    src.Parent,
		BaseIndex: resp.BaseIndex,
		NextIndex: resp.NextIndex,
		Used:      resp.Used,
		Checked:   resp.Checked,
		GapLimit:  resp.GapLimit,
	}
	if prev := src.Cursor; prev != nil {
		cursor.Scheme = prev.Scheme
		cursor.Account = prev.Account
		cursor.Change = prev.Change
	}
	if err := store.Put(cursor); err != nil {
		return err
	}
	cc.Logger.Debug("discover: saved cursor %s at index %d", cursor.Key, cursor.NextIndex)
	return nil
}

func displayDiscoverText(w io.Writer, resp DiscoverResponse) {
	out(w, "Used:          %d\n", resp.Used)
	out(w, "Checked:       %d (%d batches, gap limit %d)\n", resp.Checked, resp.Batches, resp.GapLimit)
	out(w, "Next address:  %s (index %d)\n", resp.NextAddress, resp.NextIndex)
	out(w, "Duration:      %s\n", (time.Duration(resp.DurationMs) * time.Millisecond).String())
	if resp.Key != "" {
		out(w, "Saved as:      %s\n", resp.Key)
	}
}

// describeChain names a chain source for log and error messages.
func describeChain(src chainSource) string {
	if src.Cursor != nil {
		return fmt.Sprintf("cursor %s", src.Cursor.Key)
	}
	return fmt.Sprintf("%s %s chain", src.Network, src.Format)
}
