package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the floatchat API configuration.
type Config struct {
	HTTP         HTTPConfig                  `yaml:"http"`
	Database     DatabaseConfig              `yaml:"database"`
	Storage      StorageConfig               `yaml:"storage"`
	Embedding    EmbeddingConfig             `yaml:"embedding"`
	LLM          LLMConfig                   `yaml:"llm"`
	Measurement  MeasurementConfig           `yaml:"measurement"`
	Retrieval    RetrievalConfig             `yaml:"retrieval"`
	Context      ContextConfig               `yaml:"context"`
	Extraction   ExtractionConfig            `yaml:"extraction"`
	Guard        GuardConfig                 `yaml:"guard"`
	Execution    ExecutionConfig             `yaml:"execution"`
	Sessions     SessionsConfig              `yaml:"sessions"`
	Capabilities map[string]CapabilityConfig `yaml:"capabilities"`
	QueryLog     QueryLogConfig              `yaml:"querylog"`
	Summary      SummaryConfig               `yaml:"summary"`
	Auth         AuthConfig                  `yaml:"auth"`
	Logging      LoggingConfig               `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotated log file, empty = stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings (retrieval index, caches, query log).
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider and vectorizer settings.
type EmbeddingConfig struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	CacheTTL   int              `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// ProviderConfig holds an OpenAI-compatible provider endpoint.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// LLMConfig holds the chat model settings.
type LLMConfig struct {
	Provider    ProviderConfig `yaml:"provider"`
	Model       string         `yaml:"model"`
	Temperature float32        `yaml:"temperature"`
	MaxTokens   int            `yaml:"max_tokens"`
}

// MeasurementConfig holds the measurement store connection.
type MeasurementConfig struct {
	Driver       string `yaml:"driver"` // pgx, duckdb
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RetrievalConfig holds retrieval corpus index settings.
type RetrievalConfig struct {
	Index           string `yaml:"index"`
	TopK            int    `yaml:"top_k"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// ContextConfig bounds the assembled model context.
type ContextConfig struct {
	Ceiling     int    `yaml:"ceiling"`
	Unit        string `yaml:"unit"`     // tokens, chars
	Encoding    string `yaml:"encoding"` // tokenizer encoding for unit=tokens
	MemoryTurns int    `yaml:"memory_turns"`
}

// ExtractionConfig holds intent extraction settings.
type ExtractionConfig struct {
	CorrectionRetries *int `yaml:"correction_retries"` // nil = 1
}

// GuardConfig holds query validator limits.
type GuardConfig struct {
	MaxRows         int `yaml:"max_rows"`
	MaxSpanDays     int `yaml:"max_span_days"`
	DefaultRowCap   int `yaml:"default_row_cap"`
	DefaultSpanDays int `yaml:"default_span_days"`
}

// ExecutionConfig holds execution adapter settings.
type ExecutionConfig struct {
	SampleRows int `yaml:"sample_rows"`
}

// SessionsConfig holds conversation memory limits.
type SessionsConfig struct {
	MaxTurns         int `yaml:"max_turns"`
	TTLMinutes       int `yaml:"ttl_minutes"`
	RetentionMinutes int `yaml:"retention_minutes"`
	CleanupMinutes   int `yaml:"cleanup_minutes"`
}

// CapabilityConfig is one row of the external capability policy table.
type CapabilityConfig struct {
	TimeoutMs    int  `yaml:"timeout_ms"`
	MaxAttempts  int  `yaml:"max_attempts"`
	BackoffMs    int  `yaml:"backoff_ms"`
	MaxBackoffMs int  `yaml:"max_backoff_ms"`
	Degrade      bool `yaml:"degrade"`
}

// QueryLogConfig holds audit log settings.
type QueryLogConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"`
}

// SummaryConfig holds data summary settings.
type SummaryConfig struct {
	CacheSeconds int `yaml:"cache_seconds"` // negative disables caching
}

// Known capability names in the policy table.
const (
	CapabilityEmbedding = "embedding"
	CapabilityRetrieval = "retrieval"
	CapabilityLLM       = "llm"
	CapabilityStorage   = "storage"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	// .env is optional, real environment wins
	_ = godotenv.Load()

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "floatchat:"
	}
	if c.Embedding.Provider.Name == "" {
		c.Embedding.Provider.Name = "openai"
	}
	if c.LLM.Provider.Name == "" {
		c.LLM.Provider.Name = "openai"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Measurement.Driver == "" {
		c.Measurement.Driver = "pgx"
	}
	if c.Measurement.MaxOpenConns <= 0 {
		c.Measurement.MaxOpenConns = 10
	}
	if c.Measurement.MaxIdleConns <= 0 {
		c.Measurement.MaxIdleConns = 5
	}
	c.applyEngineDefaults()
	c.applyCapabilityDefaults()
}

func (c *Config) applyEngineDefaults() {
	if c.Retrieval.Index == "" {
		c.Retrieval.Index = c.Storage.KeyPrefix + "corpus:idx"
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.HNSWM <= 0 {
		c.Retrieval.HNSWM = 16
	}
	if c.Retrieval.HNSWEFConstruct <= 0 {
		c.Retrieval.HNSWEFConstruct = 200
	}
	if c.Context.Ceiling <= 0 {
		c.Context.Ceiling = 6000
	}
	if c.Context.Unit == "" {
		c.Context.Unit = "tokens"
	}
	if c.Context.Encoding == "" {
		c.Context.Encoding = "cl100k_base"
	}
	if c.Context.MemoryTurns <= 0 {
		c.Context.MemoryTurns = 3
	}
	if c.Extraction.CorrectionRetries == nil {
		one := 1
		c.Extraction.CorrectionRetries = &one
	}
	if c.Guard.MaxRows <= 0 {
		c.Guard.MaxRows = 10000
	}
	if c.Guard.MaxSpanDays <= 0 {
		c.Guard.MaxSpanDays = 5 * 365
	}
	if c.Guard.DefaultRowCap <= 0 {
		c.Guard.DefaultRowCap = 1000
	}
	if c.Guard.DefaultSpanDays <= 0 {
		c.Guard.DefaultSpanDays = c.Guard.MaxSpanDays
	}
	if c.Execution.SampleRows <= 0 {
		c.Execution.SampleRows = 20
	}
	if c.Sessions.MaxTurns <= 0 {
		c.Sessions.MaxTurns = 20
	}
	if c.Sessions.TTLMinutes <= 0 {
		c.Sessions.TTLMinutes = 30
	}
	if c.Sessions.RetentionMinutes <= 0 {
		c.Sessions.RetentionMinutes = 60
	}
	if c.Sessions.CleanupMinutes <= 0 {
		c.Sessions.CleanupMinutes = 5
	}
	if c.QueryLog.TTLHours <= 0 {
		c.QueryLog.TTLHours = 24 * 7
	}
	if c.Summary.CacheSeconds == 0 {
		c.Summary.CacheSeconds = 60
	}
}

// defaultCapabilities is the policy table used for rows missing from the config.
var defaultCapabilities = map[string]CapabilityConfig{
	CapabilityEmbedding: {TimeoutMs: 5000, MaxAttempts: 2, BackoffMs: 100, MaxBackoffMs: 1000, Degrade: true},
	CapabilityRetrieval: {TimeoutMs: 2000, MaxAttempts: 2, BackoffMs: 50, MaxBackoffMs: 500, Degrade: true},
	CapabilityLLM:       {TimeoutMs: 30000, MaxAttempts: 1},
	CapabilityStorage:   {TimeoutMs: 10000, MaxAttempts: 3, BackoffMs: 200, MaxBackoffMs: 2000},
}

func (c *Config) applyCapabilityDefaults() {
	if c.Capabilities == nil {
		c.Capabilities = make(map[string]CapabilityConfig, len(defaultCapabilities))
	}
	for name, def := range defaultCapabilities {
		cur, ok := c.Capabilities[name]
		if !ok {
			c.Capabilities[name] = def
			continue
		}
		if cur.TimeoutMs <= 0 {
			cur.TimeoutMs = def.TimeoutMs
		}
		if cur.MaxAttempts <= 0 {
			cur.MaxAttempts = def.MaxAttempts
		}
		if cur.BackoffMs <= 0 {
			cur.BackoffMs = def.BackoffMs
		}
		if cur.MaxBackoffMs <= 0 {
			cur.MaxBackoffMs = def.MaxBackoffMs
		}
		c.Capabilities[name] = cur
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Measurement.Driver {
	case "pgx", "duckdb":
		// ok
	default:
		return fmt.Errorf("measurement.driver must be \"pgx\" or \"duckdb\", got %q", c.Measurement.Driver)
	}
	switch c.Context.Unit {
	case "tokens", "chars":
		// ok
	default:
		return fmt.Errorf("context.unit must be \"tokens\" or \"chars\", got %q", c.Context.Unit)
	}
	if r := c.Extraction.CorrectionRetries; r != nil && *r < 0 {
		return fmt.Errorf("extraction.correction_retries must be >= 0, got %d", *r)
	}
	if c.Guard.DefaultRowCap > c.Guard.MaxRows {
		return fmt.Errorf("guard.default_row_cap (%d) exceeds guard.max_rows (%d)",
			c.Guard.DefaultRowCap, c.Guard.MaxRows)
	}
	for name := range c.Capabilities {
		if _, ok := defaultCapabilities[name]; !ok {
			return fmt.Errorf("capabilities.%s: unknown capability", name)
		}
	}
	return nil
}

// SessionTTL returns the session expiry window.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// SessionRetention returns how long an expired session is kept to be reported as expired.
func (c *Config) SessionRetention() time.Duration {
	return time.Duration(c.Sessions.RetentionMinutes) * time.Minute
}

// SummaryCacheTTL returns how long a data summary is served from cache. Zero disables caching.
func (c *Config) SummaryCacheTTL() time.Duration {
	if c.Summary.CacheSeconds < 0 {
		return 0
	}
	return time.Duration(c.Summary.CacheSeconds) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
