package config

import (
	_ "embed"
	"errors"
	"os"
	"strings"

	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	doerrors "github.com/arthur-debert/dosort/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the prefix of environment variables read into the config
const EnvPrefix = "DOSORT_"

// Config is the resolved application configuration
type Config struct {
	Catalog  Catalog  `koanf:"catalog"`
	Rules    Rules    `koanf:"rules"`
	Organize Organize `koanf:"organize"`
	Logging  Logging  `koanf:"logging"`
}

type Catalog struct {
	Path string `koanf:"path"`
}

type Rules struct {
	Path string `koanf:"path"`
}

type Organize struct {
	Verify      bool   `koanf:"verify"`
	Concurrency int    `koanf:"concurrency"`
	BaseDir     string `koanf:"base_dir"`
}

type Logging struct {
	File string `koanf:"file"`
}

// LoadOptions selects the user file and caller overrides
type LoadOptions struct {
	// File is an explicit config file. It must exist when set.
	File string
	// Overrides are dotted keys applied last, e.g. "organize.concurrency".
	Overrides map[string]interface{}
	// Paths resolves defaults; paths.New() when nil.
	Paths paths.Paths
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Defaults returns the embedded default config document
func Defaults() string {
	return string(defaultConfig)
}

// Load resolves the configuration from all layers
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	p := opts.Paths
	if p == nil {
		p = paths.New()
	}

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, doerrors.Wrap(err, doerrors.ErrConfigParse, "failed to load default config")
	}

	// 2. User file
	configPath := opts.File
	explicit := configPath != ""
	if !explicit {
		configPath = p.ConfigFile()
	}
	configPath = paths.ExpandHome(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, doerrors.Wrapf(err, doerrors.ErrConfigParse, "failed to parse config %s", configPath).
				WithDetail("path", configPath)
		}
		logger.Debug().Str("path", configPath).Msg("Loaded config file")
	} else if explicit {
		return nil, doerrors.Wrapf(err, doerrors.ErrConfigLoad, "config file %s not readable", configPath).
			WithDetail("path", configPath)
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, doerrors.Wrap(err, doerrors.ErrConfigLoad, "failed to load environment")
	}

	// 4. Overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, doerrors.Wrap(err, doerrors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, doerrors.Wrap(err, doerrors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := postProcess(&cfg, p); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps DOSORT_ORGANIZE_BASE_DIR to organize.base_dir. Only the
// first underscore separates section from key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func postProcess(cfg *Config, p paths.Paths) error {
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = p.CatalogFile()
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = p.RulesFile()
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = p.LogFile()
	}
	cfg.Catalog.Path = paths.ExpandHome(cfg.Catalog.Path)
	cfg.Rules.Path = paths.ExpandHome(cfg.Rules.Path)
	cfg.Logging.File = paths.ExpandHome(cfg.Logging.File)
	if cfg.Organize.BaseDir != "" {
		cfg.Organize.BaseDir = paths.ExpandHome(cfg.Organize.BaseDir)
	}

	if cfg.Organize.Concurrency < 1 {
		return doerrors.Newf(doerrors.ErrConfigValid, "organize.concurrency must be at least 1, got %d", cfg.Organize.Concurrency).
			WithDetail("key", "organize.concurrency")
	}
	return nil
}
