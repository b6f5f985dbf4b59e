package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/qadex/internal/domain"
	"github.com/kailas-cloud/qadex/internal/domain/access"
	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	"github.com/kailas-cloud/qadex/internal/domain/search/request"
	"github.com/kailas-cloud/qadex/internal/domain/search/result"
	"github.com/kailas-cloud/qadex/internal/logger"
	"github.com/kailas-cloud/qadex/internal/metrics"
)

// Config holds retrieval defaults.
type Config struct {
	// DefaultTenant applies to requests that carry no tenant.
	DefaultTenant string
	// FieldWeights are the lexical weights used when a request has no overrides.
	FieldWeights []request.FieldWeight
	// ChannelTimeout bounds each channel call; 0 means no timeout.
	ChannelTimeout time.Duration
}

// Answer is the outcome of the full retrieval pipeline.
type Answer struct {
	// Entity is the project the question was resolved to, nil if none.
	Entity      *catalog.Identified
	Hits        []result.Fused
	TextCount   int
	VectorCount int
}

// Service runs hybrid retrieval: a lexical and a vector channel in parallel,
// fused with Reciprocal Rank Fusion.
type Service struct {
	repo     Repository
	embed    Embedder
	resolver Resolver
	cfg      Config
}

// New creates a search service. resolver can be nil.
func New(repo Repository, embed Embedder, resolver Resolver, cfg Config) *Service {
	if len(cfg.FieldWeights) == 0 {
		cfg.FieldWeights = request.DefaultFieldWeights()
	}
	return &Service{repo: repo, embed: embed, resolver: resolver, cfg: cfg}
}

// Search runs both channels under the caller's access predicate and returns
// their lists unfused. The first channel failure cancels the other one and
// is returned as a *domain.RetrievalError; there is no partial result.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Retrieval, error) {
	tenant := req.TenantID()
	if tenant == "" {
		tenant = s.cfg.DefaultTenant
	}
	pred, err := access.Build(access.Context{
		TenantID:         tenant,
		ScopeID:          req.ScopeID(),
		AuthorizationIDs: req.AuthorizationIDs(),
	})
	if err != nil {
		return result.Retrieval{}, fmt.Errorf("build access predicate: %w", err)
	}
	ctx = logger.With(ctx,
		zap.String("tenant_id", tenant),
		zap.String("scope_id", req.ScopeID()),
		zap.Int("visibility_classes", len(pred.Partitions)),
	)

	k := req.PerChannel()
	if k == 0 {
		return result.Retrieval{}, nil
	}

	weights := req.FieldWeights()
	if len(weights) == 0 {
		weights = s.cfg.FieldWeights
	}

	var out result.Retrieval
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := s.runChannel(gctx, domain.ChannelText, func(ctx context.Context) ([]result.Hit, error) {
			return s.repo.SearchText(ctx, req.Question(), weights, pred, k)
		})
		out.Text = hits
		return err
	})

	g.Go(func() error {
		hits, err := s.runChannel(gctx, domain.ChannelVector, func(ctx context.Context) ([]result.Hit, error) {
			emb, err := s.embed.Embed(ctx, req.Question())
			if err != nil {
				return nil, fmt.Errorf("vectorize query: %w", err)
			}
			return s.repo.SearchVector(ctx, emb.Embedding, pred, k)
		})
		out.Vector = hits
		return err
	})

	if err := g.Wait(); err != nil {
		return result.Retrieval{}, err //nolint:wrapcheck // already a RetrievalError or embedding error
	}

	logger.FromContext(ctx).Debug("Retrieval completed",
		zap.Int("per_channel", k),
		zap.Int("text_hits", len(out.Text)),
		zap.Int("vector_hits", len(out.Vector)),
	)
	return out, nil
}

// Answer resolves the question to a project when the request has no scope
// and resolve is set, then searches, fuses and keeps the request's top_k hits.
func (s *Service) Answer(ctx context.Context, req request.Request, resolve bool) (Answer, error) {
	var ans Answer

	if resolve && req.ScopeID() == "" && s.resolver != nil {
		id, ok, err := s.resolver.Resolve(ctx, req.Question())
		switch {
		case errors.Is(err, domain.ErrResolverDisabled):
		case err != nil:
			return Answer{}, fmt.Errorf("resolve scope: %w", err)
		case ok:
			ans.Entity = &id
			req = req.WithScope(id.ID)
			ctx = logger.With(ctx, zap.String("entity_method", string(id.Method)))
		}
	}

	ret, err := s.Search(ctx, req)
	if err != nil {
		return Answer{}, err
	}
	if ret.IsEmpty() {
		logger.FromContext(ctx).Debug("No visible document matched", zap.Int("budget", req.Budget()))
		return ans, nil
	}
	ans.TextCount = len(ret.Text)
	ans.VectorCount = len(ret.Vector)

	hits := Rerank(ret)
	if len(hits) > req.TopK() {
		hits = hits[:req.TopK()]
	}
	ans.Hits = hits
	return ans, nil
}

// runChannel applies the channel timeout and records metrics. Search failures
// and timeouts become a RetrievalError; embedding failures keep their own type.
func (s *Service) runChannel(
	ctx context.Context, channel string, fn func(context.Context) ([]result.Hit, error),
) ([]result.Hit, error) {
	if s.cfg.ChannelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ChannelTimeout)
		defer cancel()
	}

	start := time.Now()
	hits, err := fn(ctx)
	metrics.RetrievalChannelDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RetrievalErrorsTotal.WithLabelValues(channel).Inc()
		if errors.Is(err, domain.ErrEmbeddingProviderError) && ctx.Err() == nil {
			return nil, err
		}
		return nil, domain.NewRetrievalError(channel, err)
	}

	metrics.RetrievalChannelHits.WithLabelValues(channel).Observe(float64(len(hits)))
	return hits, nil
}
