package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/qadex/internal/db"
	"github.com/kailas-cloud/qadex/internal/domain/access"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
	"github.com/kailas-cloud/qadex/internal/domain/search/request"
	"github.com/kailas-cloud/qadex/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store     store
	layout    domdoc.Layout
	efRuntime int
}

// New creates a search repository over the corpus described by layout.
func New(s store, layout domdoc.Layout) *Repo {
	return &Repo{store: s, layout: layout}
}

// WithEFRuntime sets the HNSW candidate list size used at query time.
func (r *Repo) WithEFRuntime(n int) *Repo {
	r.efRuntime = n
	return r
}

// SearchText runs the lexical channel: a field-weighted full-text match under
// the access filter, with each visibility class's boost added to the native score.
// A boost is constant within its class, so every class is queried for its own
// top k and the boosted lists are merged; no candidate outside a class's top k
// can outrank one inside it.
func (r *Repo) SearchText(
	ctx context.Context, query string, weights []request.FieldWeight, pred access.Predicate, k int,
) ([]result.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	fields := make([]db.WeightedField, len(weights))
	for i, w := range weights {
		fields[i] = db.WeightedField{Name: w.Field, Weight: w.Weight}
	}

	if !pred.HasBoosts() || len(pred.Partitions) == 0 {
		return r.searchClass(ctx, query, fields, pred.Filter, pred.BoostFor, k)
	}

	lists := make([][]result.Hit, len(pred.Partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range pred.Partitions {
		g.Go(func() error {
			hits, err := r.searchClass(gctx, query, fields, part.Filter, part.Boost, k)
			if err != nil {
				return fmt.Errorf("%s class: %w", part.Class, err)
			}
			lists[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var hits []result.Hit
	for _, l := range lists {
		hits = append(hits, l...)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// searchClass returns the top k text matches under f, adding boost(fields) to each score.
func (r *Repo) searchClass(
	ctx context.Context, query string, fields []db.WeightedField, f filter.Node,
	boost func(map[string]string) float64, k int,
) ([]result.Hit, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.layout.Index(),
		Query:        query,
		Fields:       fields,
		Filter:       f,
		TopK:         k,
		ReturnFields: domdoc.HitFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrEmptyQuery) {
			return nil, nil
		}
		return nil, fmt.Errorf("search text: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, r.toHit(entry, entry.Score+boost(entry.Fields)))
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchVector runs the vector channel: KNN over document embeddings under the
// access filter, ordered by descending cosine similarity.
func (r *Repo) SearchVector(
	ctx context.Context, vector []float32, pred access.Predicate, k int,
) ([]result.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.layout.Index(),
		VectorField:  domdoc.FieldEmbedding,
		Filter:       pred.Filter,
		Vector:       vector,
		K:            k,
		EFRuntime:    r.efRuntime,
		ReturnFields: domdoc.HitFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search vector: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, r.toHit(entry, entry.Score))
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// toHit maps stored fields to a hit. Empty optional fields become nil.
func (r *Repo) toHit(entry db.SearchEntry, score float64) result.Hit {
	f := entry.Fields
	id := f[domdoc.FieldDocumentID]
	if id == "" {
		id = r.layout.IDFromKey(entry.Key)
	}
	return result.Hit{
		DocumentID:         id,
		Score:              score,
		Category:           f[domdoc.FieldCategory],
		Question:           f[domdoc.FieldQuestion],
		Answer:             f[domdoc.FieldAnswer],
		AnswerInstructions: result.Optional(f[domdoc.FieldAnswerInstructions]),
		ProjectID:          result.Optional(f[domdoc.FieldProjectID]),
		ProjectName:        result.Optional(f[domdoc.FieldProjectName]),
		AuthorizationID:    result.Optional(f[domdoc.FieldAuthorizationID]),
	}
}
