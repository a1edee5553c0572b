package cli

import (
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdscan/internal/chainstore"
	"github.com/mrz1836/hdscan/internal/output"
)

// stateCmd is the parent command for stored scan cursors.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage stored scan cursors",
	Long: `Inspect and remove the chain cursors written by 'discover --save' and
'accounts --save'.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored cursors",
	Long:  `List every stored cursor with its scan counts and next index.`,
	Example: `  hdscan state list
  hdscan state list -o json`,
	Args: cobra.NoArgs,
	RunE: runStateList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stateShowCmd = &cobra.Command{
	Use:               "show <key>",
	Short:             "Show a stored cursor",
	Long:              `Show one stored cursor, including the extended key of its chain parent.`,
	Example:           `  hdscan state show bip44-btc/0/0`,
	Args:              cobra.ExactArgs(1),
	RunE:              runStateShow,
	ValidArgsFunction: completeCursorKeys,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stateDeleteCmd = &cobra.Command{
	Use:               "delete <key>",
	Short:             "Delete a stored cursor",
	Long:              `Delete a stored cursor. The next scan of that chain starts from scratch.`,
	Example:           `  hdscan state delete main/0`,
	Args:              cobra.ExactArgs(1),
	RunE:              runStateDelete,
	ValidArgsFunction: completeCursorKeys,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.GroupID = groupState
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateDeleteCmd)
}

// StateListResponse is the JSON response for state list.
type StateListResponse struct {
	Path    string              `json:"path"`
	Cursors []chainstore.Cursor `json:"cursors"`
}

func runStateList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cursors, err := store.List()
	if err != nil {
		return err
	}
	resp := StateListResponse{Path: store.Path(), Cursors: cursors}

	return emit(cmd, cc, resp, func(w io.Writer) {
		if len(cursors) == 0 {
			outln(w, "No stored cursors.")
			return
		}
		table := output.NewTable("KEY", "NETWORK", "FORMAT", "USED", "CHECKED", "NEXT INDEX", "UPDATED").AlignRight(3, 4, 5)
		for _, c := range cursors {
			table.AddRow(
				c.Key,
				c.Network,
				c.Format,
				strconv.Itoa(c.Used),
				strconv.Itoa(c.Checked),
				strconv.FormatUint(uint64(c.NextIndex), 10),
				c.UpdatedAt.Local().Format(time.DateTime),
			)
		}
		_ = table.Render(w)
	})
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cursor, err := store.Get(args[0])
	if err != nil {
		return err
	}

	return emit(cmd, cc, cursor, func(w io.Writer) {
		out(w, "Key:         %s\n", cursor.Key)
		if cursor.Scheme != "" {
			out(w, "Scheme:      %s (account %d, change %d)\n", cursor.Scheme, cursor.Account, cursor.Change)
		}
		out(w, "Network:     %s\n", cursor.Network)
		out(w, "Format:      %s\n", cursor.Format)
		out(w, "Parent:      %s\n", cursor.Parent)
		out(w, "Base index:  %d\n", cursor.BaseIndex)
		out(w, "Next index:  %d\n", cursor.NextIndex)
		out(w, "Used:        %d\n", cursor.Used)
		out(w, "Checked:     %d (gap limit %d)\n", cursor.Checked, cursor.GapLimit)
		out(w, "Updated:     %s\n", cursor.UpdatedAt.Local().Format(time.DateTime))
	})
}

func runStateDelete(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	store, err := cc.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	cc.Logger.Debug("state: deleted cursor %s", args[0])

	format := output.FormatText
	if cc.Formatter.IsJSON() {
		format = output.FormatJSON
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "deleted cursor "+args[0], format)
}

// completeCursorKeys completes stored cursor keys.
func completeCursorKeys(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || cfg == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	store, err := GetCmdContext(cmd).openStore()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer func() { _ = store.Close() }()

	cursors, err := store.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	keys := make([]string, len(cursors))
	for i, c := range cursors {
		keys[i] = c.Key
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}
