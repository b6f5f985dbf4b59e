package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qadex/internal/config"
	dbRedis "github.com/kailas-cloud/qadex/internal/db/redis"
	"github.com/kailas-cloud/qadex/internal/domain"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	logpkg "github.com/kailas-cloud/qadex/internal/logger"
	"github.com/kailas-cloud/qadex/internal/metrics"
	documentrepo "github.com/kailas-cloud/qadex/internal/repository/document"
	"github.com/kailas-cloud/qadex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/qadex/internal/repository/search"
	"github.com/kailas-cloud/qadex/internal/repository/source"
	chiTransport "github.com/kailas-cloud/qadex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/qadex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/qadex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/qadex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/qadex/internal/usecase/indexing"
	resolveruc "github.com/kailas-cloud/qadex/internal/usecase/resolver"
	searchuc "github.com/kailas-cloud/qadex/internal/usecase/search"
)

// app is the composition root shared by all commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store
	layout domdoc.Layout

	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
	// nameEmbedder embeds catalog names and resolver queries without an instruction prefix.
	nameEmbedder domain.Embedder

	resolver *resolveruc.Resolver
	catalog  *source.CatalogFile
}

func newApp(ctx context.Context, c *cli.Context) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(c.String("env"), cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterHTTPMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		layout: domdoc.NewLayout(cfg.Storage.KeyPrefix),
	}
	if a.nameEmbedder, err = a.buildEmbedder(""); err != nil {
		a.Close()
		return nil, err
	}
	if a.docEmbedder, err = a.buildEmbedder(cfg.Embedding.DocumentInstruction); err != nil {
		a.Close()
		return nil, err
	}
	if a.queryEmbedder, err = a.buildEmbedder(cfg.Embedding.QueryInstruction); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	if cfg.Resolver.CatalogPath != "" {
		a.catalog = source.NewCatalogFile(cfg.Resolver.CatalogPath)
		a.resolver = resolveruc.New(a.nameEmbedder, cfg.Resolver.Threshold, logpkg.Named(logger, "resolver"))
	}
	return a, nil
}

// Close releases the database connection and flushes the logger.
func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func (a *app) buildEmbedder(instruction string) (domain.Embedder, error) {
	ec := a.cfg.Embedding
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     a.logger,
	})

	var embedder domain.Embedder = base
	if ec.Cache.Enabled {
		prefix := fmt.Sprintf("%semb:%s:%d:", a.cfg.Storage.KeyPrefix, ec.Model, ec.Dimensions)
		cached, err := embcache.New(base, a.store, prefix, metrics.EmbeddingCacheTotal, a.logger).
			WithTTL(ec.Cache.TTL()).
			WithLRU(ec.Cache.LRUSize)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		embedder = cached
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, a.logger).
		WithDimensions(ec.Dimensions).
		WithMaxBatchSize(ec.MaxBatchSize)

	// Instruction prefix (outermost, so cache keys include the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), nil
	}
	return embedder, nil
}

// loadCatalog reads the catalog file and prepares the resolver. No-op without a catalog.
func (a *app) loadCatalog(ctx context.Context) error {
	if a.resolver == nil {
		a.logger.Info("Entity resolver disabled: no catalog configured")
		return nil
	}
	entities, err := a.catalog.Load(ctx)
	if err != nil {
		return err
	}
	if err := a.resolver.Reload(ctx, entities); err != nil {
		return fmt.Errorf("prepare catalog %s: %w", a.catalog.Path(), err)
	}
	a.logger.Info("Entity resolver ready",
		zap.String("catalog", a.catalog.Path()),
		zap.Int("entities", a.resolver.Size()),
		zap.Float64("threshold", a.resolver.Threshold()),
	)
	return nil
}

func (a *app) search() *searchuc.Service {
	repo := searchrepo.New(a.store, a.layout).
		WithEFRuntime(a.cfg.Index.NumCandidates)

	var resolver searchuc.Resolver
	if a.resolver != nil {
		resolver = a.resolver
	}
	return searchuc.New(repo, a.queryEmbedder, resolver, searchuc.Config{
		DefaultTenant:  a.cfg.Retrieval.DefaultTenant,
		FieldWeights:   a.cfg.Retrieval.Weights(),
		ChannelTimeout: a.cfg.Retrieval.ChannelTimeout(),
	})
}

func (a *app) documents() *documentrepo.Repo {
	return documentrepo.New(a.store, a.layout).WithHNSW(documentrepo.HNSWConfig{
		M:           a.cfg.Index.HNSWM,
		EFConstruct: a.cfg.Index.HNSWEFConstruct,
	})
}

func (a *app) indexer() *indexinguc.Service {
	return indexinguc.New(a.documents(), a.docEmbedder, a.cfg.Embedding.Dimensions, logpkg.Named(a.logger, "indexing")).
		WithBatchSize(a.cfg.Indexing.BatchSize).
		WithWorkers(a.cfg.Indexing.Workers)
}

func (a *app) health() *healthuc.Service {
	svc := healthuc.New(a.store, newEmbeddingHealthChecker(a.queryEmbedder))
	if a.resolver != nil {
		svc = svc.WithCatalog(a.resolver)
	}
	return svc
}

// entityResolver returns the resolver as a transport interface, nil when disabled.
func (a *app) entityResolver() chiTransport.EntityResolver {
	if a.resolver == nil {
		return nil
	}
	return a.resolver
}

func (a *app) catalogSource() chiTransport.CatalogSource {
	if a.catalog == nil {
		return nil
	}
	return a.catalog
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
