package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/qadex/internal/db"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string, deleteDocs bool) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchCountFn func(ctx context.Context, index string, f filter.Node) (int, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index string, f filter.Node) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, f)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, domdoc.NewLayout("test:")), ms
}

func mustDoc(t *testing.T, f domdoc.Fields) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(f)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return d
}

func publicDoc(t *testing.T, id string) domdoc.Document {
	t.Helper()
	return mustDoc(t, domdoc.Fields{
		DocumentID: id,
		Category:   "Allgemein",
		Question:   "Wie erreiche ich den Support?",
		Answer:     "Per E-Mail.",
		TenantID:   "t1",
	})
}
