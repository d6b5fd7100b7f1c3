package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidMeasurementDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Measurement.Driver = "sqlite"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid driver")
	}

	expected := `measurement.driver must be "pgx" or "duckdb", got "sqlite"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ContextUnits(t *testing.T) {
	for _, unit := range []string{"tokens", "chars"} {
		t.Run("unit="+unit, func(t *testing.T) {
			cfg := validConfig()
			cfg.Context.Unit = unit
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid unit %q: %v", unit, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Context.Unit = "words"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestValidate_NegativeCorrectionRetries(t *testing.T) {
	cfg := validConfig()
	n := -1
	cfg.Extraction.CorrectionRetries = &n

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative correction retries")
	}
}

func TestValidate_RowCapAboveMax(t *testing.T) {
	cfg := validConfig()
	cfg.Guard.DefaultRowCap = cfg.Guard.MaxRows + 1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default row cap above max")
	}
}

func TestValidate_UnknownCapability(t *testing.T) {
	cfg := validConfig()
	cfg.Capabilities["telepathy"] = CapabilityConfig{TimeoutMs: 1}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown capability")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Storage.KeyPrefix != "floatchat:" {
		t.Errorf("expected KeyPrefix='floatchat:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Retrieval.Index != "floatchat:corpus:idx" {
		t.Errorf("expected Index='floatchat:corpus:idx', got %q", cfg.Retrieval.Index)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Context.MemoryTurns != 3 {
		t.Errorf("expected MemoryTurns=3, got %d", cfg.Context.MemoryTurns)
	}
	if cfg.Extraction.CorrectionRetries == nil || *cfg.Extraction.CorrectionRetries != 1 {
		t.Errorf("expected CorrectionRetries=1, got %v", cfg.Extraction.CorrectionRetries)
	}
	if cfg.Guard.MaxRows != 10000 {
		t.Errorf("expected MaxRows=10000, got %d", cfg.Guard.MaxRows)
	}
	if cfg.Guard.MaxSpanDays != 1825 {
		t.Errorf("expected MaxSpanDays=1825, got %d", cfg.Guard.MaxSpanDays)
	}
	if cfg.Measurement.Driver != "pgx" {
		t.Errorf("expected Driver=pgx, got %q", cfg.Measurement.Driver)
	}
	for _, name := range []string{CapabilityEmbedding, CapabilityRetrieval, CapabilityLLM, CapabilityStorage} {
		if _, ok := cfg.Capabilities[name]; !ok {
			t.Errorf("expected default capability %q", name)
		}
	}
}

func TestSessionWindows(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if got := cfg.SessionTTL(); got != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", got)
	}
	if got := cfg.SessionRetention(); got != time.Hour {
		t.Errorf("SessionRetention = %v, want 1h", got)
	}

	cfg.Sessions.TTLMinutes = 10
	cfg.Sessions.RetentionMinutes = 5
	if cfg.SessionTTL() != 10*time.Minute || cfg.SessionRetention() != 5*time.Minute {
		t.Errorf("unexpected windows %v / %v", cfg.SessionTTL(), cfg.SessionRetention())
	}
}

func TestSummaryCacheTTL(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{"default", 0, time.Minute},
		{"explicit", 15, 15 * time.Second},
		{"disabled", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Summary: SummaryConfig{CacheSeconds: tt.seconds}}
			cfg.ApplyDefaults()
			if got := cfg.SummaryCacheTTL(); got != tt.want {
				t.Errorf("SummaryCacheTTL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := 0
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Storage:    StorageConfig{KeyPrefix: "custom:"},
		Extraction: ExtractionConfig{CorrectionRetries: &zero},
		Capabilities: map[string]CapabilityConfig{
			CapabilityStorage: {TimeoutMs: 500, MaxAttempts: 5},
		},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if *cfg.Extraction.CorrectionRetries != 0 {
		t.Errorf("expected CorrectionRetries=0, got %d", *cfg.Extraction.CorrectionRetries)
	}
	st := cfg.Capabilities[CapabilityStorage]
	if st.TimeoutMs != 500 || st.MaxAttempts != 5 {
		t.Errorf("storage policy overridden: %+v", st)
	}
	if st.BackoffMs != 200 {
		t.Errorf("expected storage BackoffMs default 200, got %d", st.BackoffMs)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FLOATCHAT_TEST_KEY", "sk-test")

	got := string(expandEnvVars([]byte("a: ${FLOATCHAT_TEST_KEY}\nb: ${FLOATCHAT_MISSING:-fallback}\n")))
	want := "a: sk-test\nb: fallback\n"
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := "http:\n  port: 9090\ndatabase:\n  addrs: [\"${FLOATCHAT_TEST_REDIS:-localhost:6379}\"]\nmeasurement:\n  driver: duckdb\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("expected default redis addr, got %q", cfg.Database.Addrs[0])
	}
	if cfg.Measurement.Driver != "duckdb" {
		t.Errorf("expected duckdb driver, got %q", cfg.Measurement.Driver)
	}
}
