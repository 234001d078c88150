package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var short, asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				return info.WriteJSON(out)
			case short:
				fmt.Fprintln(out, info.Version)
			default:
				fmt.Fprintln(out, info.FullString())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	cmd.MarkFlagsMutuallyExclusive("short", "json")
	return cmd
}
