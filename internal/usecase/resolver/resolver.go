// Package resolver maps free text to a known catalog entity.
//
// Resolution tries a normalized substring match first, longest catalog names
// first, and falls back to cosine similarity between the query embedding and
// precomputed name embeddings.
package resolver

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qadex/internal/domain"
	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	"github.com/kailas-cloud/qadex/internal/metrics"
)

// DefaultThreshold is the minimum confidence for an embedding match.
const DefaultThreshold = 0.5

// snapshot is immutable once published.
type snapshot struct {
	entities []catalog.Entity
	// byLength holds indexes into entities, longest normalized name first.
	byLength []int
	// vectors[i] is the embedding of entities[i].Name(); nil without an embedder.
	vectors [][]float32
}

// Resolver resolves text against the current catalog snapshot.
// It is safe for concurrent use; Reload swaps the snapshot atomically.
type Resolver struct {
	embed     Embedder
	threshold float64
	snap      atomic.Pointer[snapshot]
	logger    *zap.Logger
}

// New creates a resolver. embed may be nil, which disables the embedding fallback.
// A threshold outside (0, 1] falls back to DefaultThreshold.
func New(embed Embedder, threshold float64, logger *zap.Logger) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{embed: embed, threshold: threshold, logger: logger}
}

// Threshold returns the configured confidence threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Size returns the number of entities in the current snapshot.
func (r *Resolver) Size() int {
	s := r.snap.Load()
	if s == nil {
		return 0
	}
	return len(s.entities)
}

// Ready reports whether a catalog has been loaded.
func (r *Resolver) Ready() bool { return r.snap.Load() != nil }

// Reload builds a snapshot from entities and publishes it. On error the
// previous snapshot stays in place.
func (r *Resolver) Reload(ctx context.Context, entities []catalog.Entity) error {
	if len(entities) == 0 {
		return domain.ErrCatalogEmpty
	}
	if err := catalog.ValidateUnique(entities); err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}

	s := &snapshot{
		entities: slices.Clone(entities),
		byLength: make([]int, len(entities)),
	}
	for i := range s.byLength {
		s.byLength[i] = i
	}
	slices.SortStableFunc(s.byLength, func(a, b int) int {
		return cmp.Compare(
			utf8.RuneCountInString(s.entities[b].Normalized()),
			utf8.RuneCountInString(s.entities[a].Normalized()),
		)
	})

	if r.embed != nil {
		names := make([]string, len(s.entities))
		for i, e := range s.entities {
			names[i] = e.Name()
		}
		res, err := domain.EmbedBatch(ctx, r.embed, names)
		if err != nil {
			return fmt.Errorf("embed catalog names: %w", err)
		}
		s.vectors = res.Embeddings
	}

	r.snap.Store(s)
	r.logger.Info("Entity catalog loaded",
		zap.Int("entities", len(s.entities)),
		zap.Bool("embeddings", s.vectors != nil),
	)
	return nil
}

// Resolve returns the entity text refers to. ok is false when nothing
// matches; that is not an error.
func (r *Resolver) Resolve(ctx context.Context, text string) (catalog.Identified, bool, error) {
	s := r.snap.Load()
	if s == nil {
		return catalog.Identified{}, false, domain.ErrResolverDisabled
	}

	query := catalog.Normalize(text)
	if query == "" {
		metrics.ResolverOutcomesTotal.WithLabelValues("miss").Inc()
		return catalog.Identified{}, false, nil
	}

	if e, ok := s.exact(query); ok {
		metrics.ResolverOutcomesTotal.WithLabelValues("exact").Inc()
		return catalog.Identified{
			Name:       e.Name(),
			ID:         e.ID(),
			Confidence: 1,
			Method:     catalog.MethodExact,
		}, true, nil
	}

	if s.vectors == nil {
		metrics.ResolverOutcomesTotal.WithLabelValues("miss").Inc()
		return catalog.Identified{}, false, nil
	}

	id, ok, err := r.nearest(ctx, s, text)
	if err != nil {
		return catalog.Identified{}, false, err
	}
	if !ok {
		metrics.ResolverOutcomesTotal.WithLabelValues("miss").Inc()
		return catalog.Identified{}, false, nil
	}
	metrics.ResolverOutcomesTotal.WithLabelValues("embedding").Inc()
	return id, true, nil
}

func (s *snapshot) exact(query string) (catalog.Entity, bool) {
	for _, i := range s.byLength {
		if strings.Contains(query, s.entities[i].Normalized()) {
			return s.entities[i], true
		}
	}
	return catalog.Entity{}, false
}

func (r *Resolver) nearest(ctx context.Context, s *snapshot, text string) (catalog.Identified, bool, error) {
	res, err := r.embed.Embed(ctx, text)
	if err != nil {
		return catalog.Identified{}, false, fmt.Errorf("embed query: %w", err)
	}

	best, bestSim := -1, 0.0
	for i, vec := range s.vectors {
		sim, err := domain.CosineSimilarity(res.Embedding, vec)
		if err != nil {
			return catalog.Identified{}, false, fmt.Errorf("compare with %q: %w", s.entities[i].Name(), err)
		}
		// NaN (from a NaN component) never wins and never matches
		if math.IsNaN(sim) {
			continue
		}
		if best < 0 || sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best < 0 {
		r.logger.Debug("Embedding resolution skipped: no comparable name vector")
		return catalog.Identified{}, false, nil
	}

	confidence := min(max((bestSim+1)/2, 0), 1)
	r.logger.Debug("Embedding resolution",
		zap.String("candidate", s.entities[best].Name()),
		zap.Float64("confidence", confidence),
	)
	if confidence < r.threshold {
		return catalog.Identified{}, false, nil
	}

	e := s.entities[best]
	return catalog.Identified{
		Name:       e.Name(),
		ID:         e.ID(),
		Confidence: confidence,
		Method:     catalog.MethodEmbedding,
	}, true, nil
}
