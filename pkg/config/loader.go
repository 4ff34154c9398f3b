package config

import (
	_ "embed"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/usecellar/cellar/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrNotImplemented, "raw bytes provider only supports ReadBytes")
}

// Load resolves the configuration from three layers, later layers
// winning: embedded defaults, the user config file at configPath (if it
// exists), and CELLAR_* environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load embedded defaults")
	}

	// 2. User config file, if present
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", configPath)
			}
		}
	}

	// 3. Environment variables: CELLAR_INSTALL_STRICTNESS maps to
	// install.strictness and so on. Section names contain no
	// underscores, so the first underscore is the section separator.
	if err := k.Load(env.Provider("CELLAR_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "CELLAR_"))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment variables")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if !cfg.Install.Strictness.Valid() {
		return errors.Newf(errors.ErrConfigValid,
			"install.strictness must be %q or %q, got %q",
			StrictnessBestEffort, StrictnessAbort, cfg.Install.Strictness)
	}
	if cfg.Repositories.Installers == "" {
		return errors.New(errors.ErrConfigValid, "repositories.installers must not be empty")
	}
	if cfg.Install.DownloadTimeout <= 0 {
		return errors.New(errors.ErrConfigValid, "install.download_timeout must be positive")
	}
	return nil
}
