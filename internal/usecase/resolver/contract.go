package resolver

import (
	"context"

	"github.com/kailas-cloud/qadex/internal/domain"
)

// Embedder vectorizes catalog names and queries. A native batch endpoint is
// used for catalog preparation when the embedder has one.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
