package piper

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds dispatcher and logging settings. Values come from
// DefaultConfig, then an optional TOML file, then PIPER_* environment
// variables.
type Config struct {
	// Lazy compiles pipelines on first use instead of in Build.
	Lazy bool `env:"PIPER_LAZY"`

	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `env:"PIPER_LOG_LEVEL"`

	// LogFile, when set, adds a size-rotated JSON log file next to stderr.
	LogFile       string `env:"PIPER_LOG_FILE"`
	LogMaxSizeMB  int    `env:"PIPER_LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `env:"PIPER_LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `env:"PIPER_LOG_MAX_AGE_DAYS"`

	// SlowThreshold is the duration above which valve.Logging reports a
	// request as slow. Pass the config with valve.WithConfig.
	SlowThreshold time.Duration `env:"PIPER_SLOW_THRESHOLD"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
		LogMaxAgeDays: 7,
		SlowThreshold: time.Second,
	}
}

// LoadConfig returns DefaultConfig overridden by environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadConfigEnvFile is like LoadConfig but also reads PIPER_* variables
// from dotenv files. Variables already set in the process environment take
// precedence over the files. The process environment is not modified.
func LoadConfigEnvFile(paths ...string) (Config, error) {
	vars, err := godotenv.Read(paths...)
	if err != nil {
		return Config{}, fmt.Errorf("read env file: %w", err)
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// fileConfig is the TOML layout of Config. Durations are strings.
type fileConfig struct {
	Lazy          *bool   `toml:"lazy"`
	LogLevel      *string `toml:"log_level"`
	LogFile       *string `toml:"log_file"`
	LogMaxSizeMB  *int    `toml:"log_max_size_mb"`
	LogMaxBackups *int    `toml:"log_max_backups"`
	LogMaxAgeDays *int    `toml:"log_max_age_days"`
	SlowThreshold *string `toml:"slow_threshold"`
}

// LoadConfigFile reads a TOML file over DefaultConfig, then applies
// environment overrides.
//
// Example file:
//
//	lazy = true
//	log_level = "debug"
//	slow_threshold = "250ms"
func LoadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if fc.Lazy != nil {
		cfg.Lazy = *fc.Lazy
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.LogMaxSizeMB != nil {
		cfg.LogMaxSizeMB = *fc.LogMaxSizeMB
	}
	if fc.LogMaxBackups != nil {
		cfg.LogMaxBackups = *fc.LogMaxBackups
	}
	if fc.LogMaxAgeDays != nil {
		cfg.LogMaxAgeDays = *fc.LogMaxAgeDays
	}
	if fc.SlowThreshold != nil {
		d, err := time.ParseDuration(*fc.SlowThreshold)
		if err != nil {
			return Config{}, fmt.Errorf("decode %s: slow_threshold: %w", path, err)
		}
		cfg.SlowThreshold = d
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
