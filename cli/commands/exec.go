package commands

import (
	"database/sql"
	"io"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/ui"
	"github.com/satishbabariya/rwconn/connection"
)

// NewExecCommand creates the exec command.
func NewExecCommand(opts *options) *cobra.Command {
	var inTx bool

	cmd := &cobra.Command{
		Use:   "exec <sql> [args...]",
		Short: "Run a statement on the write pool",
		Long: `Run a statement on the write endpoint and report the affected rows.
With --tx the statement runs inside a transaction that is rolled back if
the statement fails.`,
		Example: `  rwconn exec --tx "UPDATE users SET username = ? WHERE id = ?" nikk 7`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, client, err := opts.connect()
			if err != nil {
				return err
			}
			defer c.Disconnect()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			stmt, bind := args[0], statementArgs(args[1:])

			var res sql.Result
			if inTx {
				err = client.RunInTransaction(ctx, nil, func(tx *connection.Transaction) error {
					var err error
					res, err = tx.Raw(stmt, bind...).Exec(ctx)
					return err
				})
			} else {
				res, err = client.Raw(stmt, bind...).Exec(ctx)
			}
			if err != nil {
				return err
			}

			reportResult(cmd.OutOrStdout(), res, inTx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&inTx, "tx", false, "Wrap the statement in a transaction")
	return cmd
}

func reportResult(out io.Writer, res sql.Result, inTx bool) {
	affected, err := res.RowsAffected()
	switch {
	case err != nil:
		// Not every driver reports affected rows.
		ui.Success(out, "statement executed")
	case inTx:
		ui.Success(out, "%d row(s) affected, committed", affected)
	default:
		ui.Success(out, "%d row(s) affected", affected)
	}
}
