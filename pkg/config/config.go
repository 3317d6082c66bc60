// Package config loads modcollect configuration from layered TOML
// sources: embedded defaults, the user config directory, and a
// .modcollect.toml inside the staging directory, in increasing
// precedence.
package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	mcerrors "github.com/modcollect/modcollect/pkg/errors"
	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/paths"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// Config is the resolved modcollect configuration.
type Config struct {
	Deploy   DeployConfig   `koanf:"deploy" toml:"deploy"`
	Classify ClassifyConfig `koanf:"classify" toml:"classify"`
}

// DeployConfig controls how files are materialized.
type DeployConfig struct {
	Method       string `koanf:"method" toml:"method"`
	GameDir      string `koanf:"game_dir" toml:"game_dir"`
	ProtonPrefix string `koanf:"proton_prefix" toml:"proton_prefix"`
}

// ClassifyConfig extends the built-in classification tables.
type ClassifyConfig struct {
	Skip      []string `koanf:"skip" toml:"skip"`
	AssetDirs []string `koanf:"asset_dirs" toml:"asset_dirs"`
}

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load resolves configuration for one staging directory. Missing override
// files are fine; unparseable ones are CONFIG_PARSE errors.
func Load(stagingDir string) (*Config, error) {
	logger := logging.GetLogger("config")

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User config
	userConfig := filepath.Join(paths.ConfigDir(), "config.toml")
	if _, err := os.Stat(userConfig); err == nil {
		if err := k.Load(file.Provider(userConfig), toml.Parser()); err != nil {
			return nil, mcerrors.Wrapf(err, mcerrors.ErrConfigParse,
				"failed to load user config from %s", userConfig)
		}
		logger.Debug().Str("path", userConfig).Msg("Loaded user config")
	}

	// 3. Staging directory config
	if stagingDir != "" {
		stagingConfig := filepath.Join(stagingDir, paths.StagingConfigFile)
		if _, err := os.Stat(stagingConfig); err == nil {
			if err := k.Load(file.Provider(stagingConfig), toml.Parser()); err != nil {
				return nil, mcerrors.Wrapf(err, mcerrors.ErrConfigParse,
					"failed to load staging config from %s", stagingConfig)
			}
			logger.Debug().Str("path", stagingConfig).Msg("Loaded staging config")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrConfigParse, "failed to unmarshal config")
	}

	if cfg.Deploy.Method != "symlink" && cfg.Deploy.Method != "copy" {
		return nil, mcerrors.Newf(mcerrors.ErrConfigParse,
			"deploy.method must be \"symlink\" or \"copy\", got %q", cfg.Deploy.Method)
	}

	return &cfg, nil
}
