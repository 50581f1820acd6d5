// Package config loads CLI configuration from defaults, an optional
// config file, and S3UTILS_-prefixed environment variables.
//
// Precedence: flags (applied by the cmd package) > environment > config
// file > defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds CLI settings.
type Config struct {
	// Region is the AWS region; empty defers to the SDK default chain.
	Region string `mapstructure:"region"`

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string `mapstructure:"endpoint"`

	// Profile is the AWS shared-config profile to use.
	Profile string `mapstructure:"profile"`

	// ForcePathStyle forces path-style URLs; most S3-compatible stores
	// need it. Defaults on automatically when Endpoint is set.
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// PageSize is the listing page size (clamped to the S3 cap of 1000).
	PageSize int `mapstructure:"page_size"`

	// ListRPS caps paginated listing requests per second.
	// Zero disables client-side limiting.
	ListRPS float64 `mapstructure:"list_rps"`

	// Parallel is the worker count for directory uploads.
	// Zero means the host's available execution units.
	Parallel int `mapstructure:"parallel"`

	// Timeout bounds a whole command invocation. Zero means no limit;
	// transport-level timeouts are inherited from the SDK either way.
	Timeout time.Duration `mapstructure:"timeout"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	// Level is a zap level name (debug, info, warn, error).
	Level string `mapstructure:"level"`
}

// Load reads configuration. When path is empty, an s3utils.yaml in the
// working directory or ~/.config/s3utils is used if present; a missing
// file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("S3UTILS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("s3utils")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/s3utils")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Endpoint != "" {
		cfg.ForcePathStyle = true
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("profile", "")
	v.SetDefault("force_path_style", false)
	v.SetDefault("page_size", 1000)
	v.SetDefault("list_rps", 0)
	v.SetDefault("parallel", 0)
	v.SetDefault("timeout", "0s")
	v.SetDefault("logging.level", "info")
}
