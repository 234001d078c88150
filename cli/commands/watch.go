package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/config"
	"github.com/satishbabariya/rwconn/cli/internal/ui"
	"github.com/satishbabariya/rwconn/cli/internal/watch"
	"github.com/satishbabariya/rwconn/connection"
	"github.com/satishbabariya/rwconn/internal/debug"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(opts *options) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconnect whenever the config file changes",
		Long: `Connect, then watch the config file. Each change tears the
connection down and connects again with the new settings. Lifecycle
events are printed as they happen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, name, cfg, err := opts.selected()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			track := func(c *connection.Connection) {
				c.On(connection.EventConnect, func(c *connection.Connection) {
					mode := "unknown"
					if client, err := c.GetClient(); err == nil {
						mode = client.Mode().String()
					}
					ui.Success(out, "%s connected (%s)", c.Name(), mode)
				})
				c.On(connection.EventDisconnect, func(c *connection.Connection) {
					ui.Warning(out, "%s disconnected", c.Name())
				})
			}

			m := connection.NewManager()
			defer m.CloseAll()

			track(m.Add(name, cfg))
			if err := m.Connect(name); err != nil {
				return err
			}

			reload := func(context.Context) error {
				next, err := config.Load(f.Path)
				if err != nil {
					return err
				}
				_, cfg, err := next.Connection(name)
				if err != nil {
					return err
				}
				if opts.debug {
					cfg.Debug = true
				}
				track(m.Patch(name, cfg))
				return m.Connect(name)
			}

			w, err := watch.New(f.Path, reload, watch.WithDebounce(debounce), watch.WithLogger(debug.Logger()))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ui.Section(out, "Watching "+w.File(), "(Ctrl+C to stop)")
			return w.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before reconnecting")
	return cmd
}
