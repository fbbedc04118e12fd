// Package config loads process configuration from a TOML settings file plus
// environment-variable overrides, and exposes dotted-path accessors. A
// process-wide instance is set once at startup; constructors that want a
// testable seam accept a *Config directly instead.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override file
// settings. DCWIZ_APP_PLATFORM__BASE_URL maps to platform.base_url.
const EnvPrefix = "DCWIZ_APP_"

// Config is an immutable view over the merged settings.
type Config struct {
	k *koanf.Koanf
}

// Load reads the settings file (optional, may be "") and overlays
// environment variables under EnvPrefix.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	return &Config{k: k}, nil
}

// FromMap builds a Config from literal values, for tests.
func FromMap(values map[string]any) *Config {
	k := koanf.New(".")
	for key, v := range values {
		_ = k.Set(key, v)
	}
	return &Config{k: k}
}

// With returns a copy of the configuration with the given dotted-path
// values overlaid.
func (c *Config) With(values map[string]any) *Config {
	k := koanf.New(".")
	_ = k.Merge(c.k)
	for key, v := range values {
		_ = k.Set(key, v)
	}
	return &Config{k: k}
}

// Has reports whether a dotted path is present.
func (c *Config) Has(path string) bool { return c.k.Exists(path) }

// String returns the value at path, or fallback when absent.
func (c *Config) String(path, fallback string) string {
	if !c.k.Exists(path) {
		return fallback
	}
	return c.k.String(path)
}

// Int returns the value at path, or fallback when absent.
func (c *Config) Int(path string, fallback int) int {
	if !c.k.Exists(path) {
		return fallback
	}
	return c.k.Int(path)
}

// Float returns the value at path, or fallback when absent.
func (c *Config) Float(path string, fallback float64) float64 {
	if !c.k.Exists(path) {
		return fallback
	}
	return c.k.Float64(path)
}

// Bool returns the value at path, or fallback when absent.
func (c *Config) Bool(path string, fallback bool) bool {
	if !c.k.Exists(path) {
		return fallback
	}
	return c.k.Bool(path)
}

// Seconds reads a numeric seconds value as a duration.
func (c *Config) Seconds(path string, fallback time.Duration) time.Duration {
	if !c.k.Exists(path) {
		return fallback
	}
	return time.Duration(c.k.Float64(path) * float64(time.Second))
}

// Unmarshal decodes the subtree at path into out (koanf struct tags) and
// validates it.
func (c *Config) Unmarshal(path string, out any) error {
	if err := c.k.Unmarshal(path, out); err != nil {
		return fmt.Errorf("unmarshal config at %q: %w", path, err)
	}
	if err := validator.New().Struct(out); err != nil {
		return fmt.Errorf("validate config at %q: %w", path, err)
	}
	return nil
}

var (
	globalMu sync.RWMutex
	global   *Config
)

// SetGlobal installs the process-wide configuration. Call once at startup,
// before any reader.
func SetGlobal(c *Config) {
	globalMu.Lock()
	global = c
	globalMu.Unlock()
}

// Global returns the process-wide configuration, or an empty one when
// SetGlobal was never called.
func Global() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global == nil {
		return &Config{k: koanf.New(".")}
	}
	return global
}
