package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/ui"
	core "github.com/satishbabariya/rwconn/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the config file",
	}
	cmd.AddCommand(newConfigShowCommand(opts))
	return cmd
}

func newConfigShowCommand(opts *options) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved write and read configs",
		Long: `Resolve the selected connection into the config each pool is opened
with. Passwords are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, name, cfg, err := opts.selected()
			if err != nil {
				return err
			}

			doc := describe(f.Path, name, cfg)
			if raw {
				_, err := io.WriteString(cmd.OutOrStdout(), doc)
				return err
			}
			return ui.Markdown(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering it")
	return cmd
}

// describe renders the resolved configs of one connection as markdown.
func describe(path, name string, cfg core.ConnectionConfig) string {
	resolved := []core.Resolved{core.ResolveWrite(cfg)}
	if core.HasReadReplica(cfg) {
		resolved = append(resolved, core.ResolveRead(cfg))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Connection `%s`\n\n", name)
	fmt.Fprintf(&b, "Read from `%s`.\n\n", path)

	b.WriteString("| role | client | endpoint | user | password | database | options |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range resolved {
		p := r.Connection
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			r.Role, r.Client, endpoint(p), p.User, ui.Mask(p.Password), p.Database, formatOptions(p.Options))
	}

	if !core.HasReadReplica(cfg) {
		b.WriteString("\nNo read replica: reads use the write pool.\n")
	}

	pool := resolved[0].Pool
	fmt.Fprintf(&b, "\nPool: min %d, max %d", pool.Min, pool.Max)
	if pool.MaxLifetime > 0 {
		fmt.Fprintf(&b, ", max lifetime %s", pool.MaxLifetime)
	}
	if pool.IdleTimeout > 0 {
		fmt.Fprintf(&b, ", idle timeout %s", pool.IdleTimeout)
	}
	b.WriteString("\n")
	return b.String()
}

func endpoint(p core.ConnectionParams) string {
	switch {
	case p.URL != "":
		return maskURL(p.URL)
	case p.Filename != "":
		return p.Filename
	case p.Socket != "":
		return "unix:" + p.Socket
	case p.Port != 0:
		return p.Host + ":" + strconv.Itoa(p.Port)
	default:
		return p.Host
	}
}

// maskURL hides the password of a user:password@host URL.
func maskURL(u string) string {
	scheme := strings.Index(u, "://")
	at := strings.LastIndex(u, "@")
	if scheme < 0 || at < scheme {
		return u
	}
	creds := u[scheme+3 : at]
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return u
	}
	return u[:scheme+3] + user + ":" + ui.Mask("x") + u[at:]
}

func formatOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + opts[k]
	}
	return strings.Join(parts, " ")
}
