// Package commands implements the rwconn CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/ui"
	"github.com/satishbabariya/rwconn/cli/internal/version"
	"github.com/satishbabariya/rwconn/internal/debug"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	connection string
	debug      bool
	logLevel   string
	logFormat  string
}

// NewRootCommand creates the rwconn root command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "rwconn",
		Short: "Inspect and exercise read/write replica connections",
		Long: `rwconn connects to the databases described in .rwconn.yaml.

Reads go to the read replica when one is configured, writes and
transactions always go to the write endpoint.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := opts.logLevel
			if opts.debug {
				level = "debug"
			}
			return debug.Configure(level, opts.logFormat, cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: search for .rwconn.yaml)")
	flags.StringVarP(&opts.connection, "connection", "n", "", "Connection name (default: the file's default)")
	flags.BoolVar(&opts.debug, "debug", false, "Log every statement")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute runs the root command and prints any error.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		ui.Error(cmd.ErrOrStderr(), "%v", err)
		return err
	}
	return nil
}
