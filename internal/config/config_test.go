package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum environment needed for Load to succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/importer_test")
}

// ===========================================================================
// Defaults
// ===========================================================================

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.MaxConns != 20 {
		t.Errorf("Database.MaxConns = %d, want 20", cfg.Database.MaxConns)
	}
	if cfg.Database.MinConns != 4 {
		t.Errorf("Database.MinConns = %d, want 4", cfg.Database.MinConns)
	}
	if cfg.Import.Retention != 168*time.Hour {
		t.Errorf("Import.Retention = %v, want 168h", cfg.Import.Retention)
	}
	if cfg.Import.SweepInterval != time.Hour {
		t.Errorf("Import.SweepInterval = %v, want 1h", cfg.Import.SweepInterval)
	}
	if cfg.Import.MaxConcurrent != 4 {
		t.Errorf("Import.MaxConcurrent = %d, want 4", cfg.Import.MaxConcurrent)
	}
	if cfg.Import.MaxBodySize != 26214400 {
		t.Errorf("Import.MaxBodySize = %d, want 26214400", cfg.Import.MaxBodySize)
	}
	if !cfg.Rate.Enabled {
		t.Error("Rate.Enabled = false, want true")
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want 100", cfg.Rate.RequestsPerMinute)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
}

// ===========================================================================
// Overrides
// ===========================================================================

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("DB_MAX_CONNS", "50")
	t.Setenv("IMPORT_RETENTION", "48h")
	t.Setenv("IMPORT_MAX_CONCURRENT", "8")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.MaxConns != 50 {
		t.Errorf("Database.MaxConns = %d, want 50", cfg.Database.MaxConns)
	}
	if cfg.Import.Retention != 48*time.Hour {
		t.Errorf("Import.Retention = %v, want 48h", cfg.Import.Retention)
	}
	if cfg.Import.MaxConcurrent != 8 {
		t.Errorf("Import.MaxConcurrent = %d, want 8", cfg.Import.MaxConcurrent)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled = true, want false")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadAlternateEnvVar(t *testing.T) {
	t.Setenv("DB_URL", "postgres://alt:5432/importer")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != "postgres://alt:5432/importer" {
		t.Errorf("Database.URL = %q, want alternate env value", cfg.Database.URL)
	}
}

// ===========================================================================
// Failure modes
// ===========================================================================

func TestLoadMissingRequired(t *testing.T) {
	// Neither DATABASE_URL nor DB_URL set
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded without DATABASE_URL, want error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error %q does not mention DATABASE_URL", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "SERVER_PORT", "not-a-number"},
		{"bad duration", "IMPORT_RETENTION", "seven days"},
		{"bad bool", "RATE_LIMIT_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() succeeded with %s=%q, want error", tt.key, tt.value)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			want:   "SERVER_PORT",
		},
		{
			name:   "max conns below min",
			mutate: func(c *Config) { c.Database.MaxConns = 2; c.Database.MinConns = 4 },
			want:   "DB_MAX_CONNS",
		},
		{
			name:   "non-positive retention",
			mutate: func(c *Config) { c.Import.Retention = 0 },
			want:   "IMPORT_RETENTION",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			want:   "LOG_LEVEL",
		},
		{
			name:   "unknown log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			want:   "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8080")
	}
}
