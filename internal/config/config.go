// =============================================================================
// SDSVG Book - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults
//   2. The YAML file given with --config (a missing file is not an error)
//   3. Environment variables prefixed with SDSVG_ (a .env file is loaded
//      by the CLI before this module runs)
//
// SECTIONS:
//   http        - listen address, upload size limit, timeouts
//   database    - driver and connection settings
//   log         - level and format
//   upload      - archive directory for uploaded workbooks
//   csv         - settings for the CLI CSV import path
//   field_rules - optional per-field clean-up rules applied during import
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SDSVG_"

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Upload   UploadConfig   `yaml:"upload"`

	// CSVSettings is used when the CLI imports a .csv file instead of a
	// workbook.
	CSVSettings CSVSettings `yaml:"csv"`

	// FieldRules are applied to extracted member fields, in order.
	// Default: none
	FieldRules []TransformationRule `yaml:"field_rules"`
}

// HTTPConfig holds web server settings.
type HTTPConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB caps the size of an uploaded workbook.
	// Default: 10
	MaxUploadMB int64 `yaml:"max_upload_mb"`

	// ReadTimeout and WriteTimeout bound a single request.
	// Default: 30s each
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (h HTTPConfig) MaxUploadBytes() int64 {
	return h.MaxUploadMB << 20
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	// Default: "postgres"
	Driver string `yaml:"driver"`

	// DSN, when set, is used as-is and the discrete fields are ignored.
	// For sqlite it is the database file path (or ":memory:").
	DSN string `yaml:"dsn"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`

	// SSLMode is passed to lib/pq.
	// Default: "disable"
	SSLMode string `yaml:"sslmode"`

	// MaxOpenConns and MaxIdleConns size the connection pool.
	// Default: 5 and 2
	MaxOpenConns int `yaml:"max_conns"`
	MaxIdleConns int `yaml:"max_idle"`
}

// ConnectionString builds the driver-specific data source name.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == DriverSQLite {
		return "sdsvg.db"
	}
	parts := []string{
		"host=" + d.Host,
		"port=" + strconv.Itoa(d.Port),
		"dbname=" + d.Name,
		"user=" + d.User,
		"sslmode=" + d.SSLMode,
	}
	if d.Password != "" {
		parts = append(parts, "password="+d.Password)
	}
	return strings.Join(parts, " ")
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "console".
	// Default: "json"
	Format string `yaml:"format"`
}

// UploadConfig controls what happens to uploaded workbooks.
type UploadConfig struct {
	// ArchiveDir receives a copy of every successfully imported workbook.
	// Default: "./uploads"
	ArchiveDir string `yaml:"archive_dir"`

	// KeepUploads enables archiving.
	// Default: false
	KeepUploads bool `yaml:"keep_uploads"`

	// Retention removes archived uploads older than this when the server
	// starts. Zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" or "tab", ";"
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Comment, when set, marks lines that are skipped entirely.
	Comment string `yaml:"comment"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a clean-up applied to one member field.
type TransformationRule struct {
	// Field is the normalized column label, e.g. "mobile" or "last name".
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim", "uppercase", "lowercase", "title_case"
	//   - "prepend_string", "append_string"
	//   - "replace", "regex_replace"
	//   - "normalize_whitespace", "remove_special_chars", "extract_digits"
	//   - "lookup", "lookup_with_default"
	//   - "if_empty_use_default", "if_empty_use_field"
	Type string `yaml:"type"`

	// Value is the parameter for the transformation. For replace actions it
	// is the replacement; for the *_default actions it is the default.
	Value string `yaml:"value"`

	// Find is the substring or pattern for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the configuration from a YAML file, then applies
// environment overrides and defaults.
//
// An empty path or a file that does not exist yields the defaults.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides copies SDSVG_* environment variables over file values.
func applyEnvOverrides(config *MainConfig) {
	config.HTTP.Addr = getEnvOrDefault("HTTP_ADDR", config.HTTP.Addr)
	config.HTTP.MaxUploadMB = int64(getEnvIntOrDefault("HTTP_MAX_UPLOAD_MB", int(config.HTTP.MaxUploadMB)))

	db := &config.Database
	db.Driver = getEnvOrDefault("DB_DRIVER", db.Driver)
	db.DSN = getEnvOrDefault("DB_DSN", db.DSN)
	db.Host = getEnvOrDefault("DB_HOST", db.Host)
	db.Port = getEnvIntOrDefault("DB_PORT", db.Port)
	db.User = getEnvOrDefault("DB_USER", db.User)
	db.Password = getEnvOrDefault("DB_PASSWORD", db.Password)
	db.Name = getEnvOrDefault("DB_NAME", db.Name)
	db.SSLMode = getEnvOrDefault("DB_SSLMODE", db.SSLMode)

	config.Log.Level = getEnvOrDefault("LOG_LEVEL", config.Log.Level)
	config.Log.Format = getEnvOrDefault("LOG_FORMAT", config.Log.Format)

	config.Upload.ArchiveDir = getEnvOrDefault("UPLOAD_ARCHIVE_DIR", config.Upload.ArchiveDir)
	config.Upload.KeepUploads = getEnvBoolOrDefault("UPLOAD_KEEP", config.Upload.KeepUploads)
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.HTTP.Addr == "" {
		config.HTTP.Addr = ":8080"
	}
	if config.HTTP.MaxUploadMB <= 0 {
		config.HTTP.MaxUploadMB = 10
	}
	if config.HTTP.ReadTimeout <= 0 {
		config.HTTP.ReadTimeout = 30 * time.Second
	}
	if config.HTTP.WriteTimeout <= 0 {
		config.HTTP.WriteTimeout = 30 * time.Second
	}

	if config.Database.Driver == "" {
		config.Database.Driver = DriverPostgres
	}
	if config.Database.Driver == DriverPostgres {
		if config.Database.Host == "" {
			config.Database.Host = "localhost"
		}
		if config.Database.Port == 0 {
			config.Database.Port = 5432
		}
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = "disable"
	}
	if config.Database.MaxOpenConns == 0 {
		config.Database.MaxOpenConns = 5
	}
	if config.Database.MaxIdleConns == 0 {
		config.Database.MaxIdleConns = 2
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "json"
	}

	if config.Upload.ArchiveDir == "" {
		config.Upload.ArchiveDir = "./uploads"
	}

	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	db := config.Database
	switch db.Driver {
	case DriverPostgres:
		if db.DSN == "" {
			var missing []string
			if db.Host == "" {
				missing = append(missing, "host")
			}
			if db.Port <= 0 {
				missing = append(missing, "port")
			}
			if db.Name == "" {
				missing = append(missing, "name")
			}
			if db.User == "" {
				missing = append(missing, "user")
			}
			if len(missing) > 0 {
				return fmt.Errorf("database settings missing: %s", strings.Join(missing, ", "))
			}
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}

	switch config.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", config.Log.Format)
	}

	for i, rule := range config.FieldRules {
		if strings.TrimSpace(rule.Field) == "" {
			return fmt.Errorf("field_rules[%d]: field is required", i)
		}
		for j, action := range rule.Actions {
			if action.Type == "" {
				return fmt.Errorf("field_rules[%d].actions[%d]: type is required", i, j)
			}
		}
	}

	return nil
}

// =============================================================================
// ENVIRONMENT HELPERS
// =============================================================================

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
