// Package config loads Commy client configuration from flags, environment
// variables, a config file, and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ciresnave/commy-go/internal/bytesize"
)

// Config is the Commy client SDK's static configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (COMMY_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// ServerURL is the websocket endpoint of the Commy server.
	ServerURL string `mapstructure:"server_url" validate:"required,url" yaml:"server_url"`

	// DefaultTimeout bounds how long a request/reply round trip waits
	// before failing with Timeout.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" validate:"required,gt=0" yaml:"default_timeout"`

	// MaxReconnectAttempts bounds automatic reconnection after connection
	// loss before giving up.
	MaxReconnectAttempts uint64 `mapstructure:"max_reconnect_attempts" validate:"gte=0" yaml:"max_reconnect_attempts"`

	// HeartbeatInterval is the cadence of the background heartbeat loop.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"required,gt=0" yaml:"heartbeat_interval"`

	// MaxVariableSize bounds the payload WriteVariable will send, rejecting
	// larger writes locally instead of letting the server reject them.
	MaxVariableSize bytesize.ByteSize `mapstructure:"max_variable_size" validate:"required,gt=0" yaml:"max_variable_size"`

	// Logging controls the SDK's own log output.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
}

// GetDefaultConfig returns a Config populated entirely with defaults.
func GetDefaultConfig() *Config {
	return &Config{
		ServerURL:            "ws://localhost:9000/ws",
		DefaultTimeout:       10 * time.Second,
		MaxReconnectAttempts: 5,
		HeartbeatInterval:    30 * time.Second,
		MaxVariableSize:      16 * bytesize.MiB,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// ApplyDefaults fills zero-valued fields of cfg with defaults.
func ApplyDefaults(cfg *Config) {
	defaults := GetDefaultConfig()

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaults.ServerURL
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.MaxVariableSize == 0 {
		cfg.MaxVariableSize = defaults.MaxVariableSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

// Validate checks cfg against its struct validation tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load loads configuration from defaults, an optional file, and COMMY_*
// environment variables, in that increasing order of precedence.
//
// configPath may be empty, in which case only environment variables and
// defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := GetDefaultConfig()
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupViper wires environment variable support and, if configPath is set,
// an explicit config file.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("COMMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_url", GetDefaultConfig().ServerURL)
	v.SetDefault("default_timeout", GetDefaultConfig().DefaultTimeout)
	v.SetDefault("max_reconnect_attempts", GetDefaultConfig().MaxReconnectAttempts)
	v.SetDefault("heartbeat_interval", GetDefaultConfig().HeartbeatInterval)
	v.SetDefault("max_variable_size", GetDefaultConfig().MaxVariableSize.String())
	v.SetDefault("logging.level", GetDefaultConfig().Logging.Level)
	v.SetDefault("logging.format", GetDefaultConfig().Logging.Format)

	// The logging fields use COMMY_LOG_* rather than the COMMY_LOGGING_*
	// the key replacer would otherwise produce.
	_ = v.BindEnv("logging.level", "COMMY_LOG_LEVEL")
	_ = v.BindEnv("logging.format", "COMMY_LOG_FORMAT")

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}
