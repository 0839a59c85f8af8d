// Package config loads toolbridge settings from an optional YAML file and
// TOOLBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/wilhg/toolbridge/pkg/tool"
)

// Names used for the config file and environment variables.
const (
	AppName   = "toolbridge"
	EnvPrefix = "TOOLBRIDGE"
)

// Config is the full toolbridge configuration.
type Config struct {
	Addr           string        `mapstructure:"addr"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	RegisterPolicy string        `mapstructure:"register_policy"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`

	Journal JournalConfig `mapstructure:"journal"`
	Host    HostConfig    `mapstructure:"host"`
	OTel    OTelConfig    `mapstructure:"otel"`
	Server  ServerConfig  `mapstructure:"server"`
}

// JournalConfig selects where tools/call records are kept.
type JournalConfig struct {
	// DSN selects the SQL journal; empty keeps an in-memory ring.
	DSN      string `mapstructure:"dsn"`
	Capacity int    `mapstructure:"capacity"`
}

// HostConfig selects the capability host the tools call into.
type HostConfig struct {
	// BridgeURL points at the host application's HTTP bridge; empty uses an
	// in-process host.
	BridgeURL string `mapstructure:"bridge_url"`
}

// OTelConfig controls tracing export.
type OTelConfig struct {
	Stdout bool `mapstructure:"stdout"`
}

// ServerConfig is the name and version reported to clients.
type ServerConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8765")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("call_timeout", "30s")
	v.SetDefault("register_policy", string(tool.PolicyAbort))
	v.SetDefault("max_body_bytes", 1<<20)
	v.SetDefault("journal.dsn", "")
	v.SetDefault("journal.capacity", 1000)
	v.SetDefault("host.bridge_url", "")
	v.SetDefault("otel.stdout", false)
	v.SetDefault("server.name", AppName)
	v.SetDefault("server.version", "dev")
}

// Load reads configuration. An explicit path must exist; without one,
// toolbridge.yaml is looked up in the working directory and the user config
// directory, and its absence is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
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

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if _, err := tool.ParsePolicy(c.RegisterPolicy); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}

// Policy returns the parsed register policy.
func (c *Config) Policy() tool.Policy {
	p, _ := tool.ParsePolicy(c.RegisterPolicy)
	return p
}
