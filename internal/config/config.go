package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cadernos-ingest/internal/common"
)

const (
	// Driver constants
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	// Spreadsheet modes
	XLSXOverwrite = "overwrite"
	XLSXAppend    = "append"

	// Default values
	DefaultLogLevel    = "info"
	DefaultLogDir      = "./logs"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB per source PDF

	dotEnvFile = ".env"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Ingest   IngestConfig
	Export   ExportConfig

	LogLevel  string
	LogDir    string
	RulesFile string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Table    string
	SSLMode  string // postgres only
	Path     string // sqlite only

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// IngestConfig holds the input scan configuration
type IngestConfig struct {
	Directory   string
	Recursive   bool
	MaxFileSize int64
	// Watch keeps the run alive after the initial batch and ingests new
	// PDFs as they land in the directory.
	Watch bool
}

// ExportConfig holds the spreadsheet mirror configuration
type ExportConfig struct {
	Enabled bool
	Mode    string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     5 * time.Second,
		},
		Ingest: IngestConfig{
			Recursive:   true,
			MaxFileSize: DefaultMaxFileSize,
		},
		Export: ExportConfig{
			Enabled: false,
			Mode:    XLSXOverwrite,
		},
		LogLevel: DefaultLogLevel,
		LogDir:   DefaultLogDir,
	}
}

// LoadFromFlags parses command line flags, the environment and an optional
// .env file, and returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	readDotEnv()
	populateConfigFromViper(cfg)

	if cfg.Ingest.Directory != "" {
		if expanded, err := filepath.Abs(cfg.Ingest.Directory); err == nil {
			cfg.Ingest.Directory = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment binds the well-known environment variables and
// registers defaults. Keys intentionally equal the env var names so values
// from a .env file land on the same keys.
func setupViperEnvironment(cfg *Config) {
	viper.SetDefault("DB_DRIVER", cfg.Database.Driver)
	viper.SetDefault("DB_HOST", "")
	viper.SetDefault("DB_PORT", 0)
	viper.SetDefault("DB_USER", "")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_NAME", "")
	viper.SetDefault("DB_TABLE", "")
	viper.SetDefault("DB_SSLMODE", cfg.Database.SSLMode)
	viper.SetDefault("DB_PATH", "")
	viper.SetDefault("INGEST_DIR", "")
	viper.SetDefault("RECURSIVE", cfg.Ingest.Recursive)
	viper.SetDefault("MAX_FILE_SIZE", cfg.Ingest.MaxFileSize)
	viper.SetDefault("WATCH", cfg.Ingest.Watch)
	viper.SetDefault("EXPORT_XLSX", cfg.Export.Enabled)
	viper.SetDefault("XLSX_MODE", cfg.Export.Mode)
	viper.SetDefault("LOG_LEVEL", cfg.LogLevel)
	viper.SetDefault("LOG_DIR", cfg.LogDir)
	viper.SetDefault("RULES_FILE", "")

	for _, key := range []string{
		"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD",
		"DB_NAME", "DB_TABLE", "DB_SSLMODE", "DB_PATH",
		"INGEST_DIR", "RECURSIVE", "MAX_FILE_SIZE", "WATCH",
		"EXPORT_XLSX", "XLSX_MODE", "LOG_LEVEL", "LOG_DIR", "RULES_FILE",
	} {
		_ = viper.BindEnv(key)
	}
}

// defineCommandLineFlags sets up the run-behavior flags. Database
// credentials stay environment-only.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("dir", "", "Directory to scan for roll PDFs (required)")
	pflag.Bool("recursive", cfg.Ingest.Recursive, "Descend into subdirectories")
	pflag.Bool("watch", cfg.Ingest.Watch, "Keep running and ingest new PDFs as they arrive")
	pflag.Bool("xlsx", cfg.Export.Enabled, "Mirror extracted records into an XLSX next to each PDF")
	pflag.String("xlsx-mode", cfg.Export.Mode, "Spreadsheet write mode: 'overwrite' or 'append'")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("log-dir", cfg.LogDir, "Directory for per-run log files")
	pflag.String("rules", "", "YAML file overriding the built-in extraction rules")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("INGEST_DIR", pflag.Lookup("dir"))
	_ = viper.BindPFlag("RECURSIVE", pflag.Lookup("recursive"))
	_ = viper.BindPFlag("WATCH", pflag.Lookup("watch"))
	_ = viper.BindPFlag("EXPORT_XLSX", pflag.Lookup("xlsx"))
	_ = viper.BindPFlag("XLSX_MODE", pflag.Lookup("xlsx-mode"))
	_ = viper.BindPFlag("LOG_LEVEL", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("LOG_DIR", pflag.Lookup("log-dir"))
	_ = viper.BindPFlag("RULES_FILE", pflag.Lookup("rules"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nIngests civil-registry roll PDFs into a database table\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_DRIVER     Database driver: postgres (default), mysql, sqlite\n")
		fmt.Fprintf(os.Stderr, "  DB_HOST       Database host (required)\n")
		fmt.Fprintf(os.Stderr, "  DB_PORT       Database port (driver default when unset)\n")
		fmt.Fprintf(os.Stderr, "  DB_USER       Database user (required)\n")
		fmt.Fprintf(os.Stderr, "  DB_PASSWORD   Database password (required)\n")
		fmt.Fprintf(os.Stderr, "  DB_NAME       Database name (required, must already exist)\n")
		fmt.Fprintf(os.Stderr, "  DB_TABLE      Destination table name (required)\n")
		fmt.Fprintf(os.Stderr, "  DB_SSLMODE    Postgres sslmode (default disable)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH       SQLite database file (sqlite driver only)\n")
		fmt.Fprintf(os.Stderr, "  INGEST_DIR    Input directory (same as --dir)\n")
		fmt.Fprintf(os.Stderr, "  WATCH         Keep watching the directory (same as --watch)\n")
		fmt.Fprintf(os.Stderr, "  EXPORT_XLSX   Mirror records to spreadsheets (same as --xlsx)\n")
		fmt.Fprintf(os.Stderr, "  XLSX_MODE     overwrite | append (same as --xlsx-mode)\n")
		fmt.Fprintf(os.Stderr, "\nA .env file in the working directory is read when present.\n")
	}
}

// readDotEnv loads a .env file from the working directory when one exists.
// Real environment variables take precedence over file values.
func readDotEnv() {
	if _, err := os.Stat(dotEnvFile); err != nil {
		return
	}
	viper.SetConfigFile(dotEnvFile)
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Database.Driver = viper.GetString("DB_DRIVER")
	cfg.Database.Host = viper.GetString("DB_HOST")
	cfg.Database.Port = viper.GetInt("DB_PORT")
	cfg.Database.User = viper.GetString("DB_USER")
	cfg.Database.Password = viper.GetString("DB_PASSWORD")
	cfg.Database.Name = viper.GetString("DB_NAME")
	cfg.Database.Table = viper.GetString("DB_TABLE")
	cfg.Database.SSLMode = viper.GetString("DB_SSLMODE")
	cfg.Database.Path = viper.GetString("DB_PATH")
	cfg.Ingest.Directory = viper.GetString("INGEST_DIR")
	cfg.Ingest.Recursive = viper.GetBool("RECURSIVE")
	cfg.Ingest.MaxFileSize = viper.GetInt64("MAX_FILE_SIZE")
	cfg.Ingest.Watch = viper.GetBool("WATCH")
	cfg.Export.Enabled = viper.GetBool("EXPORT_XLSX")
	cfg.Export.Mode = viper.GetString("XLSX_MODE")
	cfg.LogLevel = viper.GetString("LOG_LEVEL")
	cfg.LogDir = viper.GetString("LOG_DIR")
	cfg.RulesFile = viper.GetString("RULES_FILE")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := common.NewValidator()

	v.Field("DB_DRIVER", c.Database.Driver, common.OneOf(DriverPostgres, DriverMySQL, DriverSQLite))
	v.Field("DB_TABLE", c.Database.Table, common.Required, common.Identifier)

	switch c.Database.Driver {
	case DriverSQLite:
		v.Field("DB_PATH", c.Database.Path, common.Required)
	default:
		v.Field("DB_HOST", c.Database.Host, common.Required)
		v.Field("DB_USER", c.Database.User, common.Required)
		v.Field("DB_PASSWORD", c.Database.Password, common.Required)
		v.Field("DB_NAME", c.Database.Name, common.Required, common.Identifier)
	}

	v.Field("XLSX_MODE", c.Export.Mode, common.OneOf(XLSXOverwrite, XLSXAppend))
	v.Field("LOG_LEVEL", c.LogLevel, common.OneOf("debug", "info", "warn", "error"))
	v.Field("INGEST_DIR", c.Ingest.Directory, common.Required)
	v.Field("LOG_DIR", c.LogDir, common.Required)

	if v.HasErrors() {
		return common.NewAppError("CONFIG_ERROR", v.Error().Error(), common.ErrConfig)
	}

	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return common.NewAppError("CONFIG_ERROR", "DB_PORT must be between 0 and 65535", common.ErrConfig)
	}
	if c.Ingest.MaxFileSize <= 0 {
		return common.NewAppError("CONFIG_ERROR", "MAX_FILE_SIZE must be positive", common.ErrConfig)
	}

	// The input directory must exist up front; it is never created.
	info, err := os.Stat(c.Ingest.Directory)
	if err != nil {
		return common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("cannot access ingest directory %s: %v", c.Ingest.Directory, err), common.ErrConfig)
	}
	if !info.IsDir() {
		return common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("ingest path is not a directory: %s", c.Ingest.Directory), common.ErrConfig)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}
