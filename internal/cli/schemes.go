package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var schemesWallet string

// schemesCmd lists the built-in derivation schemes.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List derivation schemes",
	Long:  `List the BIP44-style derivation schemes accepted by 'accounts --scheme'.`,
	Example: `  hdscan schemes
  hdscan schemes --wallet electrum`,
	Args: cobra.NoArgs,
	RunE: runSchemes,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(schemesCmd)
	schemesCmd.GroupID = groupDiscovery
	schemesCmd.Flags().StringVar(&schemesWallet, "wallet", "", "only schemes used by this wallet")
}

func runSchemes(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	schemes := discovery.Schemes()
	if schemesWallet != "" {
		schemes = discovery.SchemesForWallet(schemesWallet)
		if len(schemes) == 0 {
			return scanerr.WithSuggestion(
				scanerr.WithDetails(scanerr.ErrNotFound, map[string]string{"wallet": schemesWallet}),
				"run 'hdscan schemes' without --wallet to see every scheme",
			)
		}
	}

	return emit(cmd, cc, schemes, func(w io.Writer) {
		table := output.NewTable("NAME", "PATH", "FORMAT", "WALLETS")
		for _, s := range schemes {
			table.AddRow(
				s.Name,
				fmt.Sprintf("m/%d'/%d'/<account>'", s.Purpose, s.CoinType),
				s.Format,
				strings.Join(s.Wallets, ", "),
			)
		}
		_ = table.Render(w)
	})
}
