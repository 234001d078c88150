// Package config loads and saves the rwconn configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	core "github.com/satishbabariya/rwconn/config"
)

// AppFs is the filesystem used by Load and Save.
var AppFs = afero.NewOsFs()

const (
	// FileName is the config file name searched for without an extension.
	FileName = ".rwconn"
	// EnvPrefix prefixes environment overrides, e.g. RWCONN_DEFAULT.
	EnvPrefix = "RWCONN"
	// DefaultConnection is used when the file names no default.
	DefaultConnection = "primary"
)

// ErrNoConnection is returned when the requested connection is not in the
// file.
var ErrNoConnection = errors.New("connection not found in config")

// File is the on-disk configuration.
type File struct {
	Default     string                           `mapstructure:"default" yaml:"default"`
	Connections map[string]core.ConnectionConfig `mapstructure:"connections" yaml:"connections"`

	// Path is the file the config was read from.
	Path string `mapstructure:"-" yaml:"-"`
}

// Connection returns the named connection, or the default one when name is
// empty.
func (f *File) Connection(name string) (string, core.ConnectionConfig, error) {
	if name == "" {
		name = f.Default
	}
	cfg, ok := f.Connections[name]
	if !ok {
		return name, core.ConnectionConfig{}, fmt.Errorf("%w: %q", ErrNoConnection, name)
	}
	return name, cfg, nil
}

// SearchPaths returns the directories searched when no path is given.
func SearchPaths() ([]string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}
	return []string{".", home, filepath.Join(home, ".config", "rwconn")}, nil
}

// Load reads the config file at path, or searches SearchPaths for
// .rwconn.yaml when path is empty. .env and .env.local in the working
// directory are loaded first so ${VAR} placeholders can refer to them.
func Load(path string) (*File, error) {
	loadDotEnv()

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		paths, err := SearchPaths()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(FileName)
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("default", DefaultConnection)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// viper lowercases every key, which would break case sensitive driver
	// options such as parseTime, so the body is decoded from the raw file.
	used := v.ConfigFileUsed()
	data, err := afero.ReadFile(AppFs, used)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", used, err)
	}
	f.Default = v.GetString("default")
	f.Path = used
	return f, nil
}

// Decode parses a YAML config document.
func Decode(data []byte) (*File, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			expandEnvHook,
			mapstructure.StringToTimeDurationHookFunc(),
			readOverrideHook,
		),
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save writes f as YAML to path, creating the directory if needed.
func Save(path string, f *File) error {
	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	// The file may hold passwords.
	return afero.WriteFile(AppFs, path, buf.Bytes(), 0o600)
}

func loadDotEnv() {
	// .env.local is applied last and wins.
	for _, name := range []string{".env", ".env.local"} {
		data, err := afero.ReadFile(AppFs, name)
		if err != nil {
			continue
		}
		values, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			continue
		}
		for k, val := range values {
			if _, set := os.LookupEnv(k); set && name == ".env" {
				continue
			}
			_ = os.Setenv(k, val)
		}
	}
}

var paramsSliceType = reflect.TypeOf([]core.ConnectionParams(nil))

// readOverrideHook accepts a single object where a list of connection
// params is expected.
func readOverrideHook(from, to reflect.Type, data any) (any, error) {
	if to == paramsSliceType && from.Kind() == reflect.Map {
		return []any{data}, nil
	}
	return data, nil
}

// expandEnvHook replaces ${VAR} placeholders in string values.
func expandEnvHook(from, _ reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s, ok := data.(string)
	if !ok || !strings.Contains(s, "${") {
		return data, nil
	}
	return os.ExpandEnv(s), nil
}
