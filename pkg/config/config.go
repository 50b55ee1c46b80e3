// Package config loads roost's configuration.
//
// Layers, later ones winning: the embedded defaults.toml, the user file
// ($XDG_CONFIG_HOME/roost/config.toml, or the path given with --config),
// ROOST_* environment variables, and finally command-line overrides.
package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	roosterrors "github.com/arthur-debert/roost/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// AppName names the XDG subdirectories roost uses
const AppName = "roost"

// Config is the effective configuration
type Config struct {
	Home           string `koanf:"home" toml:"home"`
	Shell          string `koanf:"shell" toml:"shell"`
	Descriptor     string `koanf:"descriptor" toml:"descriptor"`
	PackageManager string `koanf:"package_manager" toml:"package_manager"`
	Deploy         Deploy `koanf:"deploy" toml:"deploy"`
}

// Deploy configures `roost deploy`
type Deploy struct {
	RemoteDir string `koanf:"remote_dir" toml:"remote_dir"`
	SSH       string `koanf:"ssh" toml:"ssh"`
	Rsync     string `koanf:"rsync" toml:"rsync"`
	Roost     string `koanf:"roost" toml:"roost"`
}

// envKeys maps the supported environment variables to config keys
var envKeys = map[string]string{
	"ROOST_HOME":              "home",
	"ROOST_SHELL":             "shell",
	"ROOST_DESCRIPTOR":        "descriptor",
	"ROOST_PACKAGE_MANAGER":   "package_manager",
	"ROOST_DEPLOY_REMOTE_DIR": "deploy.remote_dir",
	"ROOST_DEPLOY_SSH":        "deploy.ssh",
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// DefaultPath returns the user configuration file location
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// Load builds the configuration. An empty path reads DefaultPath when it
// exists; an explicit path must exist. Overrides are keyed like the TOML
// file ("deploy.ssh") and empty values are ignored.
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, roosterrors.Wrap(err, roosterrors.ErrConfigLoad, "failed to load defaults").
			WithOp("config.load")
	}

	userFile := path
	if userFile == "" {
		if _, err := os.Stat(DefaultPath()); err == nil {
			userFile = DefaultPath()
		}
	}
	if userFile != "" {
		if err := k.Load(file.Provider(userFile), toml.Parser()); err != nil {
			return nil, roosterrors.Wrapf(err, roosterrors.ErrConfigLoad, "failed to load config from %s", userFile).
				WithOp("config.load").WithDetail(roosterrors.DetailPath, userFile)
		}
	}

	err := k.Load(env.ProviderWithValue("ROOST_", ".", func(name, value string) (string, interface{}) {
		// an empty key skips the variable
		if value == "" {
			return "", nil
		}
		return envKeys[name], value
	}), nil)
	if err != nil {
		return nil, roosterrors.Wrap(err, roosterrors.ErrConfigLoad, "failed to load environment").
			WithOp("config.load")
	}

	set := make(map[string]interface{}, len(overrides))
	for key, value := range overrides {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		set[key] = value
	}
	if err := k.Load(confmap.Provider(set, "."), nil); err != nil {
		return nil, roosterrors.Wrap(err, roosterrors.ErrConfigLoad, "failed to apply overrides").
			WithOp("config.load")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, roosterrors.Wrap(err, roosterrors.ErrConfigLoad, "invalid configuration").
			WithOp("config.load").WithDetail(roosterrors.DetailPath, userFile)
	}

	if cfg.Home == "" {
		cfg.Home = filepath.Join(xdg.DataHome, AppName)
	}
	cfg.Shell = strings.TrimSpace(cfg.Shell)
	return &cfg, nil
}

// TOML renders the configuration in the format of the user file
func (c *Config) TOML() ([]byte, error) {
	out, err := gotoml.Marshal(c)
	if err != nil {
		return nil, roosterrors.Wrap(err, roosterrors.ErrInternal, "failed to render configuration").
			WithOp("config.toml")
	}
	return out, nil
}
