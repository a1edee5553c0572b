package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Address listing bounds.
const (
	defaultListCount = 20
	defaultFindLimit = 1000
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	addressesFormat string
	addressesStart  uint32
	addressesState  string
	addressesCount  int
	addressesLimit  int
)

// addressesCmd is the parent command for address derivation.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Derive and search chain addresses",
	Long:  `Derive the addresses of a chain without querying any oracle.`,
}

// addressesListCmd lists consecutive chain addresses.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesListCmd = &cobra.Command{
	Use:   "list [xpub]",
	Short: "List chain addresses",
	Long:  `List consecutive addresses of a chain, starting at --start.`,
	Example: `  hdscan addresses list xpub6... --count 10
  hdscan addresses list xpub6... --format p2wpkh --start 100
  hdscan addresses list --state bip44-btc/0/0`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAddressesList,
}

// addressesFindCmd finds the child index of an address.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesFindCmd = &cobra.Command{
	Use:   "find [xpub] <address>",
	Short: "Find the child index of an address",
	Long: `Derive up to --limit addresses of a chain and report the child index of
the given address.`,
	Example: `  hdscan addresses find xpub6... 1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA
  hdscan addresses find --state bip44-btc/0/1 1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAddressesFind,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(addressesCmd)
	addressesCmd.GroupID = groupState
	addressesCmd.AddCommand(addressesListCmd)
	addressesCmd.AddCommand(addressesFindCmd)

	for _, c := range []*cobra.Command{addressesListCmd, addressesFindCmd} {
		c.Flags().StringVar(&addressesFormat, "format", "", "address format: p2pkh, p2wpkh, eth (default: configured)")
		c.Flags().Uint32Var(&addressesStart, "start", 0, "first child index")
		c.Flags().StringVar(&addressesState, "state", "", "use the chain of a stored cursor")
	}
	addressesListCmd.Flags().IntVar(&addressesCount, "count", defaultListCount, "number of addresses to list")
	addressesFindCmd.Flags().IntVar(&addressesLimit, "limit", defaultFindLimit, "number of addresses to search")
}

// AddressEntry is one derived address.
type AddressEntry struct {
	Index   uint32 `json:"index"`
	Address string `json:"address"`
}

// AddressesResponse is the JSON response for addresses list.
type AddressesResponse struct {
	Format    string         `json:"format"`
	Network   string         `json:"network"`
	Addresses []AddressEntry `json:"addresses"`
}

// FindResponse is the JSON response for addresses find.
type FindResponse struct {
	Address string `json:"address"`
	Index   uint32 `json:"index"`
	Checked int    `json:"checked"`
}

func runAddressesList(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	if addressesCount < 1 {
		return scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"count": strconv.Itoa(addressesCount)})
	}

	src, _, err := cc.chainArgs(args, addressesState, addressesFormat, addressesStart, 0)
	if err != nil {
		return err
	}
	start := addressesStart
	if addressesState != "" && !cmd.Flags().Changed("start") {
		start = src.Base
	}
	chain, err := cc.newChain(src, start)
	if err != nil {
		return err
	}

	if _, err := chain.Get(); err != nil {
		return err
	}
	for i := 1; i < addressesCount; i++ {
		if _, err := chain.Next(); err != nil {
			return err
		}
	}
	addrs, err := chain.GetAll()
	if err != nil {
		return err
	}

	resp := AddressesResponse{
		Format:    chain.Encoder().Name(),
		Network:   src.Network,
		Addresses: make([]AddressEntry, len(addrs)),
	}
	for i, addr := range addrs {
		resp.Addresses[i] = AddressEntry{Index: start + uint32(i), Address: addr} //nolint:gosec // G115: bounded by count
	}

	return emit(cmd, cc, resp, func(w io.Writer) {
		table := output.NewTable("INDEX", "ADDRESS")
		for _, e := range resp.Addresses {
			table.AddRow(strconv.FormatUint(uint64(e.Index), 10), e.Address)
		}
		_ = table.Render(w)
	})
}

func runAddressesFind(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	if addressesLimit < 1 {
		return scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"limit": strconv.Itoa(addressesLimit)})
	}

	src, rest, err := cc.chainArgs(args, addressesState, addressesFormat, addressesStart, 1)
	if err != nil {
		return err
	}
	target := rest[0]
	start := addressesStart
	if addressesState != "" && !cmd.Flags().Changed("start") {
		start = src.Base
	}
	chain, err := cc.newChain(src, start)
	if err != nil {
		return err
	}

	// Derive incrementally so a match stops the search early.
	if _, err := chain.Get(); err != nil {
		return err
	}
	for chain.Len() < addressesLimit {
		if _, ok := chain.Find(target); ok {
			break
		}
		if _, err := chain.Next(); err != nil {
			return err
		}
	}

	index, ok := chain.Find(target)
	if !ok {
		return scanerr.WithSuggestion(
			scanerr.WithDetails(scanerr.ErrNotFound, map[string]string{
				"address": target,
				"checked": strconv.Itoa(chain.Len()),
			}),
			"increase --limit, or check --format and --network",
		)
	}

	resp := FindResponse{Address: target, Index: index, Checked: chain.Len()}
	return emit(cmd, cc, resp, func(w io.Writer) {
		out(w, "%s is child %d (searched %d addresses)\n", resp.Address, resp.Index, resp.Checked)
	})
}
