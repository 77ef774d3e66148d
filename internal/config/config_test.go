package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the two variables without defaults so Load can
// succeed; everything else falls back to its tagged default.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/bulkedit")
	t.Setenv("REMOTE_BASE_URL", "http://gateway.local")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %s, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.MaxConns != 20 || cfg.Database.MinConns != 4 {
		t.Errorf("Database pool = %d/%d, want 20/4", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Remote.Timeout = %s, want 30s", cfg.Remote.Timeout)
	}
	if cfg.Batch.ChunkSize != 100 {
		t.Errorf("Batch.ChunkSize = %d, want 100", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.MaxConcurrent != 3 {
		t.Errorf("Batch.MaxConcurrent = %d, want 3", cfg.Batch.MaxConcurrent)
	}
	if cfg.Batch.OperationTimeout != 30*time.Minute {
		t.Errorf("Batch.OperationTimeout = %s, want 30m", cfg.Batch.OperationTimeout)
	}
	if cfg.Cache.ReferenceTTL != 5*time.Minute {
		t.Errorf("Cache.ReferenceTTL = %s, want 5m", cfg.Cache.ReferenceTTL)
	}
	if !cfg.Rate.Enabled || cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate = %v/%d, want enabled/100", cfg.Rate.Enabled, cfg.Rate.RequestsPerMinute)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %s/%s, want info/text", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BATCH_CHUNK_SIZE", "25")
	t.Setenv("BATCH_OPERATION_TIMEOUT", "5m")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Batch.ChunkSize != 25 {
		t.Errorf("Batch.ChunkSize = %d, want 25", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.OperationTimeout != 5*time.Minute {
		t.Errorf("Batch.OperationTimeout = %s, want 5m", cfg.Batch.OperationTimeout)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled = true, want false")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REMOTE_BASE_URL", "http://gateway.local")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without DATABASE_URL")
	} else if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %v, want mention of DATABASE_URL", err)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "not-a-port")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a non-numeric port")
	}
}

func TestLoad_ValidationRejectsBadCombination(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "10")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() accepted MaxConns < MinConns")
	}
	if !strings.Contains(err.Error(), "DB_MAX_CONNS") {
		t.Errorf("error = %v, want mention of DB_MAX_CONNS", err)
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 9090}
	if got := s.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9090", got)
	}
}

func TestString_MasksDatabaseURL(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := cfg.String()
	if strings.Contains(s, "postgres://") {
		t.Errorf("String() leaked the database URL: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked database URL", s)
	}
}
