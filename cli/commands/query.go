package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/ui"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a read-only statement on the read pool",
		Long: `Run a statement that does not modify data. It is sent to the read
replica when one is configured and to the write endpoint otherwise.
Extra arguments are bound to the statement's placeholders.`,
		Example: `  rwconn query "SELECT id, username FROM users WHERE id = ?" 7`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, client, err := opts.connect()
			if err != nil {
				return err
			}
			defer c.Disconnect()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			rows, err := client.Raw(args[0], statementArgs(args[1:])...).ReadOnly().All(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				headers, cells := tabulate(rows)
				if err := ui.Table(out, headers, cells); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "(%d rows)\n", len(rows))
			return nil
		},
	}
}
