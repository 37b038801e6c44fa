package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.User = "ingest"
	cfg.Database.Password = "secret"
	cfg.Database.Name = "registo"
	cfg.Database.Table = "cidadaos"
	cfg.Ingest.Directory = t.TempDir()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Database.DialTimeout)
	assert.True(t, cfg.Ingest.Recursive)
	assert.False(t, cfg.Ingest.Watch)
	assert.False(t, cfg.Export.Enabled)
	assert.Equal(t, XLSXOverwrite, cfg.Export.Mode)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid postgres config",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing host",
			mutate:  func(cfg *Config) { cfg.Database.Host = "" },
			wantErr: "DB_HOST",
		},
		{
			name:    "missing user",
			mutate:  func(cfg *Config) { cfg.Database.User = "" },
			wantErr: "DB_USER",
		},
		{
			name:    "missing password",
			mutate:  func(cfg *Config) { cfg.Database.Password = "" },
			wantErr: "DB_PASSWORD",
		},
		{
			name:    "missing database name",
			mutate:  func(cfg *Config) { cfg.Database.Name = "" },
			wantErr: "DB_NAME",
		},
		{
			name:    "missing table",
			mutate:  func(cfg *Config) { cfg.Database.Table = "" },
			wantErr: "DB_TABLE",
		},
		{
			name:    "table name with injection",
			mutate:  func(cfg *Config) { cfg.Database.Table = "cidadaos; DROP TABLE x" },
			wantErr: "DB_TABLE",
		},
		{
			name:    "unknown driver",
			mutate:  func(cfg *Config) { cfg.Database.Driver = "oracle" },
			wantErr: "DB_DRIVER",
		},
		{
			name: "sqlite requires path",
			mutate: func(cfg *Config) {
				cfg.Database.Driver = DriverSQLite
				cfg.Database.Path = ""
			},
			wantErr: "DB_PATH",
		},
		{
			name: "sqlite does not require host credentials",
			mutate: func(cfg *Config) {
				cfg.Database.Driver = DriverSQLite
				cfg.Database.Path = "registo.db"
				cfg.Database.Host = ""
				cfg.Database.User = ""
				cfg.Database.Password = ""
				cfg.Database.Name = ""
			},
		},
		{
			name:    "invalid spreadsheet mode",
			mutate:  func(cfg *Config) { cfg.Export.Mode = "merge" },
			wantErr: "XLSX_MODE",
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.LogLevel = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "missing ingest directory",
			mutate:  func(cfg *Config) { cfg.Ingest.Directory = "" },
			wantErr: "INGEST_DIR",
		},
		{
			name:    "ingest directory does not exist",
			mutate:  func(cfg *Config) { cfg.Ingest.Directory = filepath.Join(cfg.Ingest.Directory, "missing") },
			wantErr: "cannot access ingest directory",
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Database.Port = 70000 },
			wantErr: "DB_PORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateIngestPathIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "roll.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o644))
	cfg.Ingest.Directory = file

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
