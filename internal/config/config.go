// Package config provides centralized configuration management for trendload.
// It layers defaults, an optional YAML file, environment variables and
// command-line overrides, then validates the result to fail fast on
// misconfiguration.
package config

// Default values.
const (
	DefaultInputDirectory = "data"
	DefaultStorePath      = "database/trending_by_time.db"
	DefaultExportPath     = "exports/trending_by_time_full_export.csv"
	DefaultSourceEncoding = "latin1"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config holds all settings. Keys are flat so that each maps directly to a
// TRENDLOAD_<KEY> environment variable.
type Config struct {
	// InputDirectory is where yearly source files are discovered (default: data)
	InputDirectory string `koanf:"input_directory" yaml:"input_directory" json:"input_directory"`

	// StorePath is the SQLite database file, used when DatabaseURL is empty
	// (default: database/trending_by_time.db)
	StorePath string `koanf:"store_path" yaml:"store_path" json:"store_path"`

	// DatabaseURL is a PostgreSQL connection string. When set, it replaces
	// the SQLite store. DATABASE_URL and DB_URL are honored as fallbacks.
	DatabaseURL string `koanf:"database_url" yaml:"database_url,omitempty" json:"database_url,omitempty"`

	// DatabaseMaxConns caps the PostgreSQL pool (default: 0, the pgx default)
	DatabaseMaxConns int `koanf:"database_max_conns" yaml:"database_max_conns,omitempty" json:"database_max_conns,omitempty"`

	// ExportPath is the full-table CSV dump, overwritten each run
	// (default: exports/trending_by_time_full_export.csv)
	ExportPath string `koanf:"export_path" yaml:"export_path" json:"export_path"`

	// SourceEncoding is the encoding of source files: latin1 or utf-8
	// (default: latin1). A UTF-8 BOM always wins.
	SourceEncoding string `koanf:"source_encoding" yaml:"source_encoding" json:"source_encoding"`

	// SentinelThreshold drops rows where at least this share of cells carry
	// the '*' marker. 0 disables dropping, so marked counts are rejected
	// (default: 0)
	SentinelThreshold float64 `koanf:"sentinel_threshold" yaml:"sentinel_threshold" json:"sentinel_threshold"`

	// MetricsPath, when set, receives run metrics in the Prometheus
	// textfile format
	MetricsPath string `koanf:"metrics_path" yaml:"metrics_path,omitempty" json:"metrics_path,omitempty"`

	// LogLevel is the minimum log level: debug, info, warn, error (default: info)
	LogLevel string `koanf:"log_level" yaml:"log_level" json:"log_level"`

	// LogFormat is the log format: text or json (default: text)
	LogFormat string `koanf:"log_format" yaml:"log_format" json:"log_format"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		InputDirectory: DefaultInputDirectory,
		StorePath:      DefaultStorePath,
		ExportPath:     DefaultExportPath,
		SourceEncoding: DefaultSourceEncoding,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// UsesPostgres reports whether the PostgreSQL backend is selected.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}
