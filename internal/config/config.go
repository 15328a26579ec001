// Package config loads squeeze settings from an optional YAML file, SQUEEZE_*
// environment variables and built-in defaults, in increasing order of
// precedence: defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shamspias/squeeze"
	"github.com/shamspias/squeeze/internal/logger"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SQUEEZE_COMPRESSION_DEFAULT_QUALITY.
const EnvPrefix = "SQUEEZE"

type Config struct {
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

type CompressionConfig struct {
	DefaultQuality   int    `mapstructure:"default_quality" yaml:"default_quality"`
	DefaultAlgorithm string `mapstructure:"default_algorithm" yaml:"default_algorithm"`
	// DefaultFormat is jpeg, png or empty to follow the input format.
	DefaultFormat     string        `mapstructure:"default_format" yaml:"default_format"`
	EnableCache       bool          `mapstructure:"enable_cache" yaml:"enable_cache"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`
	MaxFileSizeMB     int           `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	JSONFormat bool   `mapstructure:"json_format" yaml:"json_format"`
}

// MaxFileSizeBytes returns the input size limit in bytes.
func (c CompressionConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("compression.default_quality", 80)
	v.SetDefault("compression.default_algorithm", squeeze.MozJPEGLike.String())
	v.SetDefault("compression.default_format", "")
	v.SetDefault("compression.enable_cache", false)
	v.SetDefault("compression.cache_ttl", "60m")
	v.SetDefault("compression.max_concurrent_jobs", 10)
	v.SetDefault("compression.max_file_size_mb", 100)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. An explicit path must exist; with an empty
// path squeeze.yaml is looked up in ., ./configs and /etc/squeeze and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("squeeze")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/squeeze")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or the
// environment.
func Default() *Config {
	return &Config{
		Compression: CompressionConfig{
			DefaultQuality:    80,
			DefaultAlgorithm:  squeeze.MozJPEGLike.String(),
			CacheTTL:          time.Hour,
			MaxConcurrentJobs: 10,
			MaxFileSizeMB:     100,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func (c *Config) Validate() error {
	cc := c.Compression
	if cc.DefaultQuality < 1 || cc.DefaultQuality > 100 {
		return fmt.Errorf("compression.default_quality must be between 1 and 100, got %d", cc.DefaultQuality)
	}
	if _, known := squeeze.ResolveAlgorithm(cc.DefaultAlgorithm); !known {
		return fmt.Errorf("compression.default_algorithm %q is not one of %v", cc.DefaultAlgorithm, squeeze.AlgorithmNames())
	}
	if cc.DefaultFormat != "" {
		if _, err := squeeze.ParseFormat(cc.DefaultFormat); err != nil {
			return fmt.Errorf("compression.default_format: %w", err)
		}
	}
	if cc.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("compression.max_concurrent_jobs must be positive")
	}
	if cc.MaxFileSizeMB <= 0 {
		return fmt.Errorf("compression.max_file_size_mb must be positive")
	}
	if cc.CacheTTL < 0 {
		return fmt.Errorf("compression.cache_ttl must not be negative")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// WriteSample writes the default configuration to path. The format follows
// the file extension (.yaml, .json, .toml).
func WriteSample(path string) error {
	v := newViper()
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
