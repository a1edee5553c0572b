package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// out is a helper for CLI output that ignores write errors.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

// emit writes v as JSON when the formatter selects JSON, and calls text
// otherwise. Both go to the command's output stream.
func emit(cmd *cobra.Command, cc *CommandContext, v any, text func(w io.Writer)) error {
	return cc.Formatter.Emit(cmd.OutOrStdout(), v, text)
}
