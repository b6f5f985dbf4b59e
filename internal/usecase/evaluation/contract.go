package evaluation

import (
	"context"

	"github.com/kailas-cloud/qadex/internal/domain/catalog"
	"github.com/kailas-cloud/qadex/internal/domain/search/request"
	"github.com/kailas-cloud/qadex/internal/domain/search/result"
)

// Searcher runs both retrieval channels for a request.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Retrieval, error)
}

// Resolver names the catalog entity a text refers to.
type Resolver interface {
	Resolve(ctx context.Context, text string) (catalog.Identified, bool, error)
}
