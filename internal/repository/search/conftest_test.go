package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/qadex/internal/db"
	"github.com/kailas-cloud/qadex/internal/domain/access"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTextFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, domdoc.NewLayout("test:"))
	return repo, ms
}

func mustPredicate(t *testing.T, c access.Context) access.Predicate {
	t.Helper()
	p, err := access.Build(c)
	if err != nil {
		t.Fatalf("access.Build: %v", err)
	}
	return p
}

func entry(id string, score float64, fields map[string]string) db.SearchEntry {
	f := map[string]string{
		"document_id": id,
		"category":    "Allgemein",
		"question":    "Frage " + id,
		"answer":      "Antwort " + id,
		"tenant_id":   "t1",
	}
	for k, v := range fields {
		f[k] = v
	}
	return db.SearchEntry{Key: "test:doc:" + id, Score: score, Fields: f}
}
