// Package config loads the application configuration from a YAML
// file, environment variables and defaults.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g.
// FLOWGRID_PORT=9000.
const envPrefix = "FLOWGRID"

// Config is the application configuration.
type Config struct {
	// Host and Port bind the HTTP server.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// DataDir is the root of the JSON file store.
	DataDir string `mapstructure:"data_dir"`
	// ToolsDir is scanned for tool definition YAML files.
	ToolsDir string `mapstructure:"tools_dir"`

	// RequestTimeout bounds each tool HTTP call.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// LogFormat is "text" or "json"; Debug lowers the log level.
	LogFormat string `mapstructure:"log_format"`
	Debug     bool   `mapstructure:"debug"`

	// ToolConfigs carries per-tool runtime secrets, keyed by tool id
	// (e.g. auth_token, auth_username).
	ToolConfigs map[string]map[string]string `mapstructure:"tool_configs"`
}

// Loader reads and merges the configuration sources.
type Loader struct {
	mu         sync.Mutex
	configFile string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigFile sets an explicit configuration file path.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) { l.configFile = path }
}

// Load builds the configuration: defaults, then config.yaml (search
// path: working directory), then FLOWGRID_* environment variables. A
// .env file in the working directory is loaded first when present.
func Load(opts ...LoaderOption) (*Config, error) {
	loader := &Loader{}
	for _, opt := range opts {
		opt(loader)
	}
	return loader.Load()
}

// Load reads the configuration sources and returns the merged config.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8080)
	v.SetDefault("data_dir", "data")
	v.SetDefault("tools_dir", "tools")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("log_format", "text")
	v.SetDefault("debug", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &cfg, nil
}
