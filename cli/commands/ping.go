package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/compat"
	"github.com/satishbabariya/rwconn/cli/internal/ui"
	core "github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/connection"
)

// NewPingCommand creates the ping command.
func NewPingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that every pool of a connection is reachable",
		Long: `Connect, ping the write pool and the read pool when configured, and
report each server's version against the minimum the driver supports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, client, err := opts.connect()
			if err != nil {
				return err
			}
			defer c.Disconnect()

			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			if err := c.Ping(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.Section(out, "Connection "+c.Name(), client.Mode().String())
			driverName := c.Config().Client
			if err := reportServer(ctx, out, driverName, client, core.RoleWrite); err != nil {
				return err
			}
			if c.HasReadWriteReplicas() {
				if err := reportServer(ctx, out, driverName, client, core.RoleRead); err != nil {
					return err
				}
			}

			if stats := c.Stats(); stats.Write != nil {
				ui.KeyValue(out, "open", stats.Write.OpenConnections)
			}
			ui.Success(out, "%s is reachable", c.Name())
			return nil
		},
	}
}

// reportServer prints the version of the server behind role.
func reportServer(ctx context.Context, out io.Writer, driverName core.DriverName, client *connection.QueryClient, role core.Role) error {
	stmt, err := compat.VersionQuery(driverName)
	if err != nil {
		return err
	}

	raw := client.Raw(stmt)
	if role == core.RoleRead {
		raw = raw.ReadOnly()
	}
	rows, err := raw.All(ctx)
	if err != nil {
		return fmt.Errorf("%s server version: %w", role, err)
	}
	reported, ok := firstValue(rows)
	if !ok {
		return fmt.Errorf("%s server version: empty result", role)
	}

	res, err := compat.Check(driverName, reported)
	if err != nil {
		return err
	}
	ui.KeyValue(out, string(role), fmt.Sprintf("%s %s", driverName.Canonical(), reported))
	if !res.Supported {
		ui.Warning(out, "%s server %s is older than the supported minimum %s", role, res.Server, res.Minimum)
	}
	return nil
}
