package cli

import (
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong lists a group command's subcommands, with their argument
// usage, under its Long text. The root command keeps cobra's grouped listing.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasParent() || !cmd.HasSubCommands() {
		return
	}

	var subs []*cobra.Command
	width := 0
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		subs = append(subs, sub)
		width = max(width, utf8.RuneCountInString(sub.Use))
	}
	if len(subs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range subs {
		sb.WriteString("  ")
		sb.WriteString(sub.Use)
		sb.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(sub.Use)+2))
		sb.WriteString(sub.Short)
		sb.WriteByte('\n')
	}
	cmd.Long = sb.String()
}
