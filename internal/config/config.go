// Package config provides layered configuration loading for the engine
// (defaults, an optional file, and environment, via viper) plus schema-checked
// reload of the two CDR-specific reference documents: the SIP endpoint
// classifier document and the extension-range/seed-routing document.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = "cdrgo"
	configType = "yaml"
	envPrefix  = "CDRGO"
)

// Default tunables, overridable by file/env.
const (
	DefaultMaxCachedLegs = 50000
	DefaultHTTPPort      = 8090
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 7
	DefaultLogMaxAgeDays = 30
)

// Config is the engine's layered configuration surface.
type Config struct {
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`

	MaxCachedLegs       int    `mapstructure:"max_cached_legs"`
	EarlyEmission       bool   `mapstructure:"early_emission"`
	ConfiguredVoicemail string `mapstructure:"configured_voicemail"`

	EndpointDocumentPath  string `mapstructure:"endpoint_document_path"`
	ExtensionDocumentPath string `mapstructure:"extension_document_path"`

	HTTPPort    int    `mapstructure:"http_port"`
	AdminToken  string `mapstructure:"admin_token"`

	LogFilePath   string `mapstructure:"log_file_path"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`

	MySQLDSN string `mapstructure:"mysql_dsn"`
}

// Load reads configuration from defaults, an optional file, and environment
// variables (CDRGO_ prefixed, nested keys joined with "_"), in that
// increasing order of precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading engine config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("max_cached_legs", DefaultMaxCachedLegs)
	v.SetDefault("early_emission", true)
	v.SetDefault("http_port", DefaultHTTPPort)
	v.SetDefault("log_max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log_max_backups", DefaultLogMaxBackups)
	v.SetDefault("log_max_age_days", DefaultLogMaxAgeDays)
}

// Validate rejects configurations the run cannot start with. Everything
// else is left to fail loudly at the point of use.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output_dir must be set")
	}
	if c.MaxCachedLegs < 0 {
		return errors.New("max_cached_legs must not be negative")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", c.HTTPPort)
	}
	return nil
}
