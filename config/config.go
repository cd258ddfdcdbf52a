// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package config holds the TOML configuration of the command line tool.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/naoina/toml"
	"github.com/torus-network/torus-client-go/internal/log"
	"github.com/torus-network/torus-client-go/lib/torus"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the configuration.
type Config struct {
	Log           LogConfig           `toml:"log"`
	RPC           RPCConfig           `toml:"rpc"`
	Metadata      MetadataConfig      `toml:"metadata"`
	Compatibility CompatibilityConfig `toml:"compatibility"`
}

// LogConfig is the logging configuration.
type LogConfig struct {
	Level  string `toml:"level" validate:"loglevel"`
	Format string `toml:"format" validate:"logformat"`
}

// RPCConfig is the node connection configuration.
type RPCConfig struct {
	// Endpoint is a http, https, ws or wss node URL.
	Endpoint string   `toml:"endpoint" validate:"required,endpoint"`
	Timeout  Duration `toml:"timeout" validate:"gte=0"`
	// PageSize is the number of keys fetched per request when iterating.
	PageSize uint32 `toml:"page_size" validate:"min=1,max=1000"`
}

// MetadataConfig tells where metadata comes from besides the node.
type MetadataConfig struct {
	// File is a metadata file used instead of the node metadata.
	File string `toml:"file"`
	// CacheDir is the metadata cache directory. Empty disables caching.
	CacheDir string `toml:"cache_dir"`
}

// CompatibilityConfig is the runtime compatibility gate configuration.
type CompatibilityConfig struct {
	// Expectations is the pinned expectations file. Empty disables the gate.
	Expectations string   `toml:"expectations"`
	Pallets      []string `toml:"pallets" validate:"dive,required"`
	RuntimeAPIs  []string `toml:"runtime_apis" validate:"dive,required"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  log.Info.String(),
			Format: log.FormatConsole.String(),
		},
		RPC: RPCConfig{
			Endpoint: "ws://127.0.0.1:9944",
			Timeout:  Duration(30 * time.Second),
			PageSize: 512,
		},
		Compatibility: CompatibilityConfig{
			Pallets: torus.DefaultPallets(),
		},
	}
}

// Load reads a TOML configuration file on top of the default configuration
// and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return Parse(b)
}

// Parse decodes a TOML configuration on top of the default configuration
// and validates the result.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	err := toml.Unmarshal(b, cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := log.ParseLevel(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		_, err := log.ParseFormat(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("endpoint", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil || u.Host == "" {
			return false
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
			return true
		}
		return false
	})

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	return nil
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}

// LogFormat returns the configured log format.
func (c *Config) LogFormat() (log.Format, error) {
	return log.ParseFormat(c.Log.Format)
}
