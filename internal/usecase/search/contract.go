package search

import (
	"context"

	"github.com/kailas-cloud/qadex/internal/domain"
	"github.com/kailas-cloud/qadex/internal/domain/access"
	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	"github.com/kailas-cloud/qadex/internal/domain/search/request"
	"github.com/kailas-cloud/qadex/internal/domain/search/result"
)

// Repository runs the two retrieval channels against the corpus index.
type Repository interface {
	SearchText(
		ctx context.Context, query string, weights []request.FieldWeight,
		pred access.Predicate, k int,
	) ([]result.Hit, error)

	SearchVector(
		ctx context.Context, vector []float32, pred access.Predicate, k int,
	) ([]result.Hit, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Resolver maps question text to a catalog entity.
type Resolver interface {
	Resolve(ctx context.Context, text string) (catalog.Identified, bool, error)
}
