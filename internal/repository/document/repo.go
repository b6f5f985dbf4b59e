package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/qadex/internal/db"
	"github.com/kailas-cloud/qadex/internal/domain"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
)

// store is the consumer interface for the corpus (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index string, f filter.Node) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/indexing.Repository.
type Repo struct {
	store  store
	layout domdoc.Layout
	hnsw   HNSWConfig
}

// New creates a corpus repository.
func New(s store, layout domdoc.Layout) *Repo {
	return &Repo{store: s, layout: layout, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the corpus index for vectors of dimension dim.
// With recreate the existing index and its documents are dropped first.
// Returns true if a new index was created.
func (r *Repo) EnsureIndex(ctx context.Context, dim int, recreate bool) (bool, error) {
	name := r.layout.Index()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	if exists && !recreate {
		return false, nil
	}
	if exists {
		if err := r.store.DropIndex(ctx, name, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("drop index %s: %w", name, err)
		}
	}

	def, err := buildIndex(r.layout, dim, r.hnsw)
	if err != nil {
		return false, fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", name, err)
	}
	return true, nil
}

// Upsert writes documents with their embeddings in one pipelined round-trip.
// Each stored hash is replaced whole, so optional fields cleared since the last
// index run disappear. vectors[i] belongs to docs[i].
func (r *Repo) Upsert(ctx context.Context, docs []domdoc.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		items[i] = db.HashSetItem{
			Key:     r.layout.Key(docs[i].ID()),
			Fields:  buildHashFields(&docs[i], vectors[i]),
			Replace: true,
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset %d documents: %w", len(items), err)
	}
	return nil
}

// Get returns a stored document by id.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.layout.Key(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrNotFound
	}
	doc, err := parseHashFields(id, m)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("stored document %s: %w", id, err)
	}
	return doc, nil
}

// Count returns the number of indexed documents, optionally restricted by f.
func (r *Repo) Count(ctx context.Context, f filter.Node) (int, error) {
	n, err := r.store.SearchCount(ctx, r.layout.Index(), f)
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}
