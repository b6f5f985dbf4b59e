package indexing

import (
	"context"

	"github.com/kailas-cloud/qadex/internal/domain"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
)

// DocumentStore writes corpus documents and their embeddings to the index.
type DocumentStore interface {
	EnsureIndex(ctx context.Context, dim int, recreate bool) (created bool, err error)
	Upsert(ctx context.Context, docs []domdoc.Document, vectors [][]float32) error
	Count(ctx context.Context, f filter.Node) (int, error)
}

// Embedder vectorizes document text. A native batch endpoint is used when present.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
