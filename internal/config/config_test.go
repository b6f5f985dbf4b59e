package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/qadex/internal/domain/search/request"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 1536},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
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
	cfg.Database.Addrs = []string{}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_Embedding(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing model")
	}

	cfg = validConfig()
	cfg.Embedding.Dimensions = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing dimensions")
	}
}

func TestValidate_Retrieval(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"budget too large", func(c *Config) { c.Retrieval.Budget = request.MaxBudget + 1 }},
		{"negative timeout", func(c *Config) { c.Retrieval.ChannelTimeoutMs = -1 }},
		{"negative cache ttl", func(c *Config) { c.Embedding.Cache.TTLHours = -1 }},
		{"unknown field", func(c *Config) { c.Retrieval.FieldWeights = map[string]float64{"body": 1} }},
		{"zero weight", func(c *Config) { c.Retrieval.FieldWeights = map[string]float64{"answer": 0} }},
		{"threshold above one", func(c *Config) { c.Resolver.Threshold = 1.5 }},
		{"bad cut-off", func(c *Config) { c.Evaluation.Ks = []int{5, 0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("expected HNSWEFConstruct=200, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Index.NumCandidates != 100 {
		t.Errorf("expected NumCandidates=100, got %d", cfg.Index.NumCandidates)
	}
	if cfg.Storage.KeyPrefix != "qadex:" {
		t.Errorf("expected KeyPrefix='qadex:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Retrieval.Budget != 20 || cfg.Retrieval.TopK != 5 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Resolver.Threshold != 0.5 {
		t.Errorf("expected Threshold=0.5, got %v", cfg.Resolver.Threshold)
	}
	if cfg.Indexing.BatchSize != 100 || cfg.Indexing.Workers != 4 {
		t.Errorf("unexpected indexing defaults: %+v", cfg.Indexing)
	}
	if len(cfg.Evaluation.Ks) != 2 {
		t.Errorf("expected 2 default cut-offs, got %v", cfg.Evaluation.Ks)
	}
	if cfg.Evaluation.DatasetVersion != "v1" {
		t.Errorf("expected dataset version v1, got %q", cfg.Evaluation.DatasetVersion)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Index:    IndexConfig{HNSWM: 32, HNSWEFConstruct: 400, NumCandidates: 50},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
		Resolver: ResolverConfig{Threshold: 0.7},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.NumCandidates != 50 {
		t.Errorf("index settings overridden: %+v", cfg.Index)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Resolver.Threshold != 0.7 {
		t.Errorf("expected Threshold=0.7, got %v", cfg.Resolver.Threshold)
	}
}

func TestRetrievalConfig_Weights(t *testing.T) {
	if got := (RetrievalConfig{}).Weights(); len(got) != 4 || got[0].Weight != 2 {
		t.Errorf("expected default weights, got %v", got)
	}

	c := RetrievalConfig{FieldWeights: map[string]float64{"project_name": 3, "question": 1}}
	got := c.Weights()
	if len(got) != 2 || got[0].Field != "question" || got[1].Field != "project_name" || got[1].Weight != 3 {
		t.Errorf("unexpected weights order: %v", got)
	}
}

func TestRetrievalConfig_ChannelTimeout(t *testing.T) {
	if got := (RetrievalConfig{ChannelTimeoutMs: 250}).ChannelTimeout(); got != 250*time.Millisecond {
		t.Errorf("got %v", got)
	}
}

func TestCacheConfig_TTL(t *testing.T) {
	if got := (CacheConfig{TTLHours: 48}).TTL(); got != 48*time.Hour {
		t.Errorf("got %v", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QADEX_TEST_ADDR", "redis:6379")

	got := string(expandEnvVars([]byte("a: ${QADEX_TEST_ADDR}\nb: ${QADEX_TEST_MISSING:-fallback}\nc: ${QADEX_TEST_MISSING}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	data := `
http:
  port: ${QADEX_TEST_PORT:-9090}
database:
  addrs: ["localhost:6379"]
embedding:
  model: bge-m3
  dimensions: 1024
retrieval:
  default_tenant: acme
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Retrieval.DefaultTenant != "acme" || cfg.Retrieval.Budget != 20 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
