package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoder providers.
const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
)

// Corpus formats.
const (
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// Config holds the coursefind configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Encoder EncoderConfig `yaml:"encoder"`
	Index   IndexConfig   `yaml:"index"`
	Cache   CacheConfig   `yaml:"cache"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin endpoint authentication settings.
type AuthConfig struct {
	AdminKeys []string `yaml:"admin_keys"` // empty disables POST /index/refresh
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	DefaultTopK     int `yaml:"default_top_k"`
}

// CorpusConfig locates the course catalog.
type CorpusConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // json, sqlite (default: by file extension)
}

// EncoderConfig selects and tunes the text encoder.
type EncoderConfig struct {
	Provider            string `yaml:"provider"` // hashing, openai
	Model               string `yaml:"model"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Dimension           int    `yaml:"dimension"`
	MaxTokens           int    `yaml:"max_tokens"`
	WeightsPath         string `yaml:"weights_path"`
	TimeoutMs           int    `yaml:"timeout_ms"`
	BatchSize           int    `yaml:"batch_size"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// IndexConfig holds corpus index build and ranking settings.
type IndexConfig struct {
	Mode            string `yaml:"mode"`   // once, per_call
	Ranker          string `yaml:"ranker"` // exact, hnsw
	Workers         int    `yaml:"workers"`
	SnapshotPath    string `yaml:"snapshot_path"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	HNSWEFSearch    int    `yaml:"hnsw_ef_search"`
	ANNMinItems     int    `yaml:"ann_min_items"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Size  int         `yaml:"size"` // in-process entries, negative disables
	TTL   int         `yaml:"ttl_sec"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds the optional second-layer cache connection.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"` // empty disables the layer
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from a YAML file path.
func LoadFile(configPath string) (Config, error) {
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
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.DefaultTopK <= 0 {
		c.HTTP.DefaultTopK = 10
	}
	if c.Corpus.Format == "" {
		c.Corpus.Format = formatFromPath(c.Corpus.Path)
	}
	if c.Encoder.Provider == "" {
		c.Encoder.Provider = ProviderHashing
	}
	if c.Encoder.Dimension <= 0 && c.Encoder.Provider == ProviderHashing {
		c.Encoder.Dimension = 384
	}
	if c.Encoder.MaxTokens <= 0 {
		c.Encoder.MaxTokens = 256
	}
	if c.Encoder.TimeoutMs <= 0 {
		c.Encoder.TimeoutMs = 10000
	}
	if c.Encoder.BatchSize <= 0 {
		c.Encoder.BatchSize = 64
	}
	if c.Index.Mode == "" {
		c.Index.Mode = "once"
	}
	if c.Index.Ranker == "" {
		c.Index.Ranker = "exact"
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = 4
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 64
	}
	if c.Index.HNSWEFSearch <= 0 {
		c.Index.HNSWEFSearch = 64
	}
	if c.Index.ANNMinItems <= 0 {
		c.Index.ANNMinItems = 1000
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 10000
	}
	if c.Cache.Redis.ReadinessTimeout <= 0 {
		c.Cache.Redis.ReadinessTimeout = 10
	}
	c.Cache.Redis.Addrs = nonEmpty(c.Cache.Redis.Addrs)
	c.Auth.AdminKeys = nonEmpty(c.Auth.AdminKeys)
}

// nonEmpty drops blank entries left by unset ${VAR} list items.
func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	switch c.Corpus.Format {
	case FormatJSON, FormatSQLite:
	default:
		return fmt.Errorf("corpus.format must be \"json\" or \"sqlite\", got %q", c.Corpus.Format)
	}
	switch c.Encoder.Provider {
	case ProviderHashing:
	case ProviderOpenAI:
		if c.Encoder.Model == "" {
			return fmt.Errorf("encoder.model is required for the openai provider")
		}
		if c.Encoder.Dimension <= 0 {
			return fmt.Errorf("encoder.dimension is required for the openai provider")
		}
	default:
		return fmt.Errorf("encoder.provider must be \"hashing\" or \"openai\", got %q", c.Encoder.Provider)
	}
	switch c.Index.Mode {
	case "once", "per_call":
	default:
		return fmt.Errorf("index.mode must be \"once\" or \"per_call\", got %q", c.Index.Mode)
	}
	switch c.Index.Ranker {
	case "exact", "hnsw":
	default:
		return fmt.Errorf("index.ranker must be \"exact\" or \"hnsw\", got %q", c.Index.Ranker)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTL)
	}
	return nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatJSON
	}
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
