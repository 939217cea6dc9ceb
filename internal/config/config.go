// Package config loads the clientflow CLI configuration from flags, the
// environment (CLIENTFLOW_*) and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "CLIENTFLOW"

// Configuration keys.
const (
	KeyEmailTemplatesURL = "email_templates_url"
	KeyHTTPTimeout       = "http_timeout"
	KeyTemplateCacheTTL  = "template_cache_ttl"
	KeyTemplateCacheSize = "template_cache_size"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyLang              = "lang"
)

// Config is the resolved CLI configuration.
type Config struct {
	EmailTemplatesURL string        `mapstructure:"email_templates_url"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	TemplateCacheTTL  time.Duration `mapstructure:"template_cache_ttl"`
	TemplateCacheSize int           `mapstructure:"template_cache_size"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	Lang              string        `mapstructure:"lang"`
}

// New returns a viper instance with defaults and environment lookup set up.
// Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyHTTPTimeout, 10*time.Second)
	v.SetDefault(KeyTemplateCacheTTL, 5*time.Minute)
	v.SetDefault(KeyTemplateCacheSize, 256)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLang, "en")
	v.SetDefault(KeyEmailTemplatesURL, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, when given, and resolves v into a
// Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command could use.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyHTTPTimeout))
	}
	if c.TemplateCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyTemplateCacheTTL))
	}
	if c.TemplateCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyTemplateCacheSize))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("%s must be json or text, got %q", KeyLogFormat, c.LogFormat))
	}
	return errors.Join(errs...)
}
