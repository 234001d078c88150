package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/rwconn/cli/internal/config"
	"github.com/satishbabariya/rwconn/cli/internal/ui"
	core "github.com/satishbabariya/rwconn/config"
)

// initAnswers are the values collected by rwconn init.
type initAnswers struct {
	Name     string
	Client   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Filename string
	ReadHost string `survey:"read_host"`
}

// NewInitCommand creates the init command.
func NewInitCommand(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or extend a config file interactively",
		Long: `Ask for the connection details of one database and write them to
the config file. Existing connections in the file are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := askInit()
			if err != nil {
				return err
			}

			path := opts.configPath
			if path == "" {
				path = config.FileName + ".yaml"
			}
			if err := saveConnection(path, answers.Name, answers.config(), force); err != nil {
				return err
			}

			ui.Success(cmd.OutOrStdout(), "Wrote connection %q to %s", answers.Name, path)
			ui.Section(cmd.OutOrStdout(), "Next steps:", "")
			fmt.Fprintf(cmd.OutOrStdout(), "  rwconn ping --connection %s\n", answers.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace a connection with the same name")
	return cmd
}

func askInit() (initAnswers, error) {
	var a initAnswers

	first := []*survey.Question{
		{
			Name:     "name",
			Prompt:   &survey.Input{Message: "Connection name:", Default: config.DefaultConnection},
			Validate: survey.Required,
		},
		{
			Name: "client",
			Prompt: &survey.Select{
				Message: "Database client:",
				Options: []string{string(core.PostgreSQL), string(core.MySQL), string(core.SQLite)},
				Default: string(core.PostgreSQL),
			},
		},
	}
	if err := survey.Ask(first, &a); err != nil {
		return a, promptError(err)
	}

	var rest []*survey.Question
	if core.DriverName(a.Client).Canonical() == core.SQLite {
		rest = []*survey.Question{{
			Name:     "filename",
			Prompt:   &survey.Input{Message: "Database file:", Default: "app.db"},
			Validate: survey.Required,
		}}
	} else {
		rest = []*survey.Question{
			{Name: "host", Prompt: &survey.Input{Message: "Host:", Default: "127.0.0.1"}},
			{Name: "port", Prompt: &survey.Input{Message: "Port:", Default: defaultPort(a.Client)}, Validate: validPort},
			{Name: "user", Prompt: &survey.Input{Message: "User:"}},
			{Name: "password", Prompt: &survey.Password{Message: "Password (use ${VAR} to read it from the environment):"}},
			{Name: "database", Prompt: &survey.Input{Message: "Database:"}, Validate: survey.Required},
			{Name: "read_host", Prompt: &survey.Input{Message: "Read replica host (leave empty for none):"}},
		}
	}
	if err := survey.Ask(rest, &a); err != nil {
		return a, promptError(err)
	}
	return a, nil
}

func promptError(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errors.New("init cancelled")
	}
	return err
}

func defaultPort(client string) string {
	if core.DriverName(client).Canonical() == core.MySQL {
		return "3306"
	}
	return "5432"
}

func validPort(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if p, err := strconv.Atoi(s); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid port %q", s)
	}
	return nil
}

// config builds the connection config the answers describe.
func (a initAnswers) config() core.ConnectionConfig {
	cfg := core.ConnectionConfig{Client: core.DriverName(a.Client)}
	if cfg.Client.Canonical() == core.SQLite {
		cfg.Connection.Filename = a.Filename
		return cfg
	}

	port, _ := strconv.Atoi(a.Port)
	cfg.Connection = core.ConnectionParams{
		Host:     a.Host,
		Port:     port,
		User:     a.User,
		Password: a.Password,
		Database: a.Database,
	}
	if a.ReadHost != "" {
		cfg.Replicas = &core.Replicas{
			Read: &core.ReadOverride{Connection: []core.ConnectionParams{{Host: a.ReadHost}}},
		}
	}
	return cfg
}

// saveConnection adds cfg to the file at path, creating it when missing.
func saveConnection(path, name string, cfg core.ConnectionConfig, force bool) error {
	f := &config.File{Default: name, Connections: map[string]core.ConnectionConfig{}}

	exists, err := afero.Exists(config.AppFs, path)
	if err != nil {
		return err
	}
	if exists {
		if f, err = config.Load(path); err != nil {
			return err
		}
		if f.Connections == nil {
			f.Connections = map[string]core.ConnectionConfig{}
		}
		if _, dup := f.Connections[name]; dup && !force {
			return fmt.Errorf("connection %q already exists in %s (use --force to replace it)", name, path)
		}
	}

	f.Connections[name] = cfg
	return config.Save(path, f)
}
