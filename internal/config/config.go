// Package config loads reticula.yaml.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/reticula/internal/logging"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "reticula.yaml"

// Cache backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the file format shared by every command.
type Config struct {
	LogLevel          string      `yaml:"log_level" json:"log_level"`
	Outgroup          string      `yaml:"outgroup" json:"outgroup"`
	Workers           int         `yaml:"workers" json:"workers"`
	ConflictThreshold float64     `yaml:"conflict_threshold" json:"conflict_threshold"`
	Cache             CacheConfig `yaml:"cache" json:"cache"`
	HTTP              HTTPConfig  `yaml:"http" json:"http"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	// Dir is the directory of the file backend.
	Dir      string `yaml:"dir" json:"dir"`
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	// TTL and LockTTL are Go durations such as "10m". Empty TTL never expires.
	TTL     string `yaml:"ttl" json:"ttl"`
	LockTTL string `yaml:"lock_ttl" json:"lock_ttl"`
}

// HTTPConfig configures `reticula serve`.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel:          "info",
		ConflictThreshold: 1.0,
		Cache: CacheConfig{
			Backend: BackendNone,
			Dir:     ".reticula/cache",
			Addr:    "localhost:6379",
			Prefix:  "reticula:result:",
			LockTTL: "30s",
		},
		HTTP: HTTPConfig{Port: 8080},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults. Files ending in .json are decoded as JSON, anything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enums.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalid, c.Workers)
	}
	if c.ConflictThreshold < 0 {
		return fmt.Errorf("%w: conflict_threshold must be >= 0, got %g", ErrInvalid, c.ConflictThreshold)
	}
	switch c.Cache.Backend {
	case "", BackendNone, BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return fmt.Errorf("%w: cache.ttl: %v", ErrInvalid, err)
	}
	if _, err := c.Cache.LockDuration(); err != nil {
		return fmt.Errorf("%w: cache.lock_ttl: %v", ErrInvalid, err)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port out of range: %d", ErrInvalid, c.HTTP.Port)
	}
	return nil
}

// TTLDuration parses TTL; empty means no expiry.
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	return parseDuration(c.TTL)
}

// LockDuration parses LockTTL; empty means no lock expiry.
func (c CacheConfig) LockDuration() (time.Duration, error) {
	return parseDuration(c.LockTTL)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
