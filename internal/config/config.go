package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/qadex/internal/domain/search/request"
)

// Config holds the qadex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
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

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	// NumCandidates is the HNSW candidate list size at query time (EF_RUNTIME).
	NumCandidates int `yaml:"num_candidates"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"`
	APIKey              string      `yaml:"api_key"`
	BaseURL             string      `yaml:"base_url"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"`
	DocumentInstruction string      `yaml:"document_instruction"`
	QueryInstruction    string      `yaml:"query_instruction"`
	MaxBatchSize        int         `yaml:"max_batch_size"`
	Cache               CacheConfig `yaml:"cache"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// LRUSize is the in-process cache capacity; 0 disables it.
	LRUSize int `yaml:"lru_size"`
	// TTLHours expires stored vectors; 0 keeps them forever.
	TTLHours int `yaml:"ttl_hours"`
}

// TTL returns the stored vector lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// RetrievalConfig holds hybrid retrieval defaults.
type RetrievalConfig struct {
	DefaultTenant    string             `yaml:"default_tenant"`
	Budget           int                `yaml:"budget"`
	TopK             int                `yaml:"top_k"`
	ChannelTimeoutMs int                `yaml:"channel_timeout_ms"` // 0 = no timeout
	FieldWeights     map[string]float64 `yaml:"field_weights"`
}

// ResolverConfig holds entity resolver settings.
type ResolverConfig struct {
	// CatalogPath is the entity catalog file; empty disables the resolver.
	CatalogPath string  `yaml:"catalog_path"`
	Threshold   float64 `yaml:"threshold"`
}

// IndexingConfig holds corpus indexing settings.
type IndexingConfig struct {
	CorpusPath string `yaml:"corpus_path"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"`
}

// EvaluationConfig holds retrieval and entity recognition evaluation settings.
type EvaluationConfig struct {
	DatasetPath string `yaml:"dataset_path"`
	ReportPath  string `yaml:"report_path"`
	Ks          []int  `yaml:"ks"`

	RecognitionDatasetPath string `yaml:"recognition_dataset_path"`
	RecognitionReportPath  string `yaml:"recognition_report_path"`
	DatasetVersion         string `yaml:"dataset_version"`
}

// ChannelTimeout returns the retrieval channel timeout.
func (c RetrievalConfig) ChannelTimeout() time.Duration {
	return time.Duration(c.ChannelTimeoutMs) * time.Millisecond
}

// Weights returns the configured lexical field weights in a fixed field order,
// or the defaults when none are configured.
func (c RetrievalConfig) Weights() []request.FieldWeight {
	if len(c.FieldWeights) == 0 {
		return request.DefaultFieldWeights()
	}
	var out []request.FieldWeight
	for _, f := range []string{
		request.FieldQuestion, request.FieldAnswer, request.FieldCategory, request.FieldProjectName,
	} {
		if w, ok := c.FieldWeights[f]; ok {
			out = append(out, request.FieldWeight{Field: f, Weight: w})
		}
	}
	return out
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "qadex:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.NumCandidates <= 0 {
		c.Index.NumCandidates = 100
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Retrieval.Budget <= 0 {
		c.Retrieval.Budget = 20
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Resolver.Threshold <= 0 {
		c.Resolver.Threshold = 0.5
	}
	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 100
	}
	if c.Indexing.Workers <= 0 {
		c.Indexing.Workers = 4
	}
	if len(c.Evaluation.Ks) == 0 {
		c.Evaluation.Ks = []int{3, 5}
	}
	if c.Evaluation.DatasetVersion == "" {
		c.Evaluation.DatasetVersion = "v1"
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
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.Budget > request.MaxBudget {
		return fmt.Errorf("retrieval.budget must not exceed %d, got %d", request.MaxBudget, c.Retrieval.Budget)
	}
	if c.Embedding.Cache.TTLHours < 0 {
		return fmt.Errorf("embedding.cache.ttl_hours must not be negative")
	}
	if c.Retrieval.ChannelTimeoutMs < 0 {
		return fmt.Errorf("retrieval.channel_timeout_ms must not be negative")
	}
	if err := request.ValidateFieldWeights(c.Retrieval.Weights()); err != nil {
		return fmt.Errorf("retrieval.field_weights: %w", err)
	}
	if len(c.Retrieval.FieldWeights) > 0 && len(c.Retrieval.Weights()) != len(c.Retrieval.FieldWeights) {
		return fmt.Errorf("retrieval.field_weights: unknown field")
	}
	if c.Resolver.Threshold > 1 {
		return fmt.Errorf("resolver.threshold must be in (0, 1], got %v", c.Resolver.Threshold)
	}
	for _, k := range c.Evaluation.Ks {
		if k <= 0 {
			return fmt.Errorf("evaluation.ks must be positive, got %d", k)
		}
	}
	return nil
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
