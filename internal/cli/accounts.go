package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/address"
	"github.com/mrz1836/hdscan/internal/chainstore"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/keynode"
	"github.com/mrz1836/hdscan/internal/mnemonic"
	"github.com/mrz1836/hdscan/internal/output"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// accountsInput is the mnemonic phrase (or interactive prompt).
	accountsInput string
	// accountsPassphrase indicates whether to prompt for a BIP39 passphrase.
	accountsPassphrase bool
	// accountsScheme selects the derivation scheme.
	accountsScheme string
	// accountsMax bounds the number of accounts walked.
	accountsMax int
	// accountsSave stores a cursor per scanned chain.
	accountsSave bool
)

// accountsCmd performs BIP44 account discovery from a mnemonic.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Discover used BIP44 accounts of a mnemonic",
	Long: `Walk accounts 0, 1, 2, ... of a derivation scheme, scanning the external and
internal chains of each account, and stop at the first account whose external
chain has never been used.

The mnemonic is read without echo unless --input is given. Run
'hdscan schemes' to list derivation schemes.`,
	Example: `  hdscan accounts
  hdscan accounts --scheme bip84-btc --passphrase
  hdscan accounts --scheme bip44-eth --oracle eth --save
  echo "abandon ... about" | hdscan accounts -o json`,
	Args: cobra.NoArgs,
	RunE: runAccounts,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.GroupID = groupDiscovery

	accountsCmd.Flags().StringVar(&accountsInput, "input", "", "mnemonic phrase (prefer the interactive prompt)")
	accountsCmd.Flags().BoolVar(&accountsPassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
	accountsCmd.Flags().StringVar(&accountsScheme, "scheme", "", "derivation scheme (default: configured)")
	accountsCmd.Flags().IntVar(&accountsMax, "max-accounts", 0, "maximum accounts to walk (default: configured)")
	accountsCmd.Flags().BoolVar(&accountsSave, "save", false, "store a cursor for every scanned chain")
	_ = accountsCmd.RegisterFlagCompletionFunc("scheme", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return discovery.SchemeNames(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	schemeName := accountsScheme
	if schemeName == "" {
		schemeName = cc.Config.Discovery.Scheme
	}
	scheme, err := discovery.SchemeByName(schemeName)
	if err != nil {
		return err
	}
	maxAccounts := accountsMax
	if maxAccounts == 0 {
		maxAccounts = cc.Config.Discovery.MaxAccounts
	}
	if maxAccounts < 1 {
		return scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"max_accounts": strconv.Itoa(maxAccounts)})
	}
	net, err := address.Network(cc.Config.Discovery.Network)
	if err != nil {
		return err
	}

	master, err := accountsMaster(cc)
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

	cc.Logger.Debug("accounts: scheme %s, up to %d accounts", scheme.Name, maxAccounts)
	result, err := discovery.NewAccountScanner(q, cc.scanOptions()).
		Discover(ctx, master, scheme, net, uint32(maxAccounts)) //nolint:gosec // G115: validated positive
	if err != nil {
		return err
	}

	if accountsSave {
		if err := saveAccountCursors(cc, scheme, result); err != nil {
			return err
		}
	}

	return emit(cmd, cc, result, func(w io.Writer) { displayAccountsText(w, result) })
}

// accountsMaster reads the mnemonic and passphrase and derives the master node.
func accountsMaster(cc *CommandContext) (keynode.Node, error) {
	phrase := mnemonic.Normalize(accountsInput)
	if phrase == "" {
		var err error
		if phrase, err = promptMnemonicFn(); err != nil {
			return nil, err
		}
	}

	var passphrase string
	if accountsPassphrase {
		var err error
		if passphrase, err = promptPassphraseFn(); err != nil {
			return nil, err
		}
	}

	backend, err := keynode.ParseBackend(cc.Config.Discovery.Backend)
	if err != nil {
		return nil, scanerr.WithCause(scanerr.ErrConfigInvalid, err)
	}
	return mnemonic.Master(phrase, passphrase, backend)
}

func saveAccountCursors(cc *CommandContext, scheme discovery.Scheme, result *discovery.AccountsResult) error {
	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gapLimit := cc.Config.Discovery.GapLimit
	for _, acct := range result.Accounts {
		for _, cr := range []discovery.ChainResult{acct.External, acct.Internal} {
			cursor := chainstore.Cursor{
				Key:       chainstore.AccountKey(scheme.Name, acct.Account, cr.Change),
				Scheme:    scheme.Name,
				Network:   cc.Config.Discovery.Network,
				Format:    scheme.Format,
				Parent:    cr.Chain.Parent().String(),
				Account:   acct.Account,
				Change:    cr.Change,
				NextIndex: cr.NextIndex,
				Used:      cr.Used,
				Checked:   cr.Checked,
				GapLimit:  gapLimit,
			}
			if err := store.Put(cursor); err != nil {
				return err
			}
			cc.Logger.Debug("accounts: saved cursor %s", cursor.Key)
		}
	}
	return nil
}

func displayAccountsText(w io.Writer, result *discovery.AccountsResult) {
	if len(result.Accounts) == 0 {
		out(w, "No used accounts found for %s (%d addresses checked).\n", result.Scheme, result.Checked)
		return
	}

	table := output.NewTable("ACCOUNT", "PATH", "RECEIVE USED", "CHANGE USED", "NEXT RECEIVE", "NEXT CHANGE").AlignRight(0, 2, 3)
	for _, acct := range result.Accounts {
		table.AddRow(
			strconv.FormatUint(uint64(acct.Account), 10),
			acct.Path,
			strconv.Itoa(acct.External.Used),
			strconv.Itoa(acct.Internal.Used),
			acct.External.NextAddress,
			acct.Internal.NextAddress,
		)
	}
	_ = table.Render(w)
	outln(w)
	out(w, "Scheme %s: %d used accounts, %d addresses checked, next account %d\n",
		result.Scheme, table.Len(), result.Checked, result.NextAccount)
}
