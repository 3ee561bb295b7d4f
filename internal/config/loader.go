package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/JonMunkholm/trendload/internal/core"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRENDLOAD_"

// EnvConfigFile names the YAML config file when no explicit path is given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// LoadOptions carries the command-line layer.
type LoadOptions struct {
	// ConfigFile is a YAML file path. Empty falls back to TRENDLOAD_CONFIG.
	ConfigFile string
	// Overrides are keys set by flags. They win over everything else.
	Overrides map[string]any
}

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New)
//  2. the YAML file, if one is named
//  3. DATABASE_URL, then DB_URL, for database_url
//  4. TRENDLOAD_* environment variables
//  5. opts.Overrides
//
// The result is validated before it is returned.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config load %s: %w", path, err)
		}
	}

	if v := firstEnv("DATABASE_URL", "DB_URL"); v != "" {
		if err := k.Set("database_url", v); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}

	// TRENDLOAD_STORE_PATH -> store_path. Empty values are ignored so an
	// exported but blank variable does not erase a default.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		if value == "" || key == EnvConfigFile {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config load env: %w", err)
	}

	for key, v := range opts.Overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config override %s: %w", key, err)
		}
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.InputDirectory) == "" {
		errs = append(errs, "input_directory must not be empty")
	}
	if !c.UsesPostgres() && strings.TrimSpace(c.StorePath) == "" {
		errs = append(errs, "store_path must not be empty when database_url is unset")
	}
	if c.DatabaseMaxConns < 0 {
		errs = append(errs, "database_max_conns must be non-negative")
	}
	if strings.TrimSpace(c.ExportPath) == "" {
		errs = append(errs, "export_path must not be empty")
	}

	if _, err := core.LookupEncoding(c.SourceEncoding); err != nil {
		errs = append(errs, fmt.Sprintf("source_encoding: %v", err))
	}

	if c.SentinelThreshold < 0 || c.SentinelThreshold > 1 {
		errs = append(errs, fmt.Sprintf("sentinel_threshold (%g) must be between 0 and 1", c.SentinelThreshold))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("log_level (%q) must be one of: debug, info, warn, error", c.LogLevel))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Sprintf("log_format (%q) must be one of: text, json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Redacted returns a copy safe to print, with the database password masked.
func (c *Config) Redacted() Config {
	out := *c
	out.DatabaseURL = maskURL(c.DatabaseURL)
	return out
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("InputDirectory: %q, ", c.InputDirectory))
	if c.UsesPostgres() {
		b.WriteString(fmt.Sprintf("DatabaseURL: %s, MaxConns: %d, ", maskURL(c.DatabaseURL), c.DatabaseMaxConns))
	} else {
		b.WriteString(fmt.Sprintf("StorePath: %q, ", c.StorePath))
	}
	b.WriteString(fmt.Sprintf("ExportPath: %q, SourceEncoding: %q, SentinelThreshold: %g, ",
		c.ExportPath, c.SourceEncoding, c.SentinelThreshold))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.LogLevel, c.LogFormat))
	b.WriteString("}")
	return b.String()
}

// maskURL hides credentials in a connection string. Strings that do not
// parse as URLs are masked entirely.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[MASKED]"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
