package document

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/qadex/internal/db"
	"github.com/kailas-cloud/qadex/internal/domain"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
	"github.com/kailas-cloud/qadex/internal/domain/search/filter"
)

func TestEnsureIndex_Creates(t *testing.T) {
	repo, ms := newTestRepo(t)

	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	ok, err := repo.EnsureIndex(context.Background(), 1024, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected created=true")
	}
	if created.Name != "test:idx" || created.Prefixes[0] != "test:doc:" {
		t.Errorf("index = %s %v", created.Name, created.Prefixes)
	}

	byName := make(map[string]db.IndexField)
	for _, f := range created.Fields {
		byName[f.Name] = f
	}
	if f := byName["embedding"]; f.Type != db.IndexFieldVector || f.VectorDim != 1024 ||
		f.VectorDistance != db.DistanceCosine || f.VectorM != 16 {
		t.Errorf("embedding field = %+v", f)
	}
	if !byName["project_id"].IndexMissing || !byName["authorization_id"].IndexMissing {
		t.Error("scope fields must index missing values")
	}
	if byName["question"].Type != db.IndexFieldText || byName["tenant_id"].Type != db.IndexFieldTag {
		t.Error("unexpected field types")
	}
}

func TestEnsureIndex_ExistsKept(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return true, nil }
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		t.Fatal("existing index must not be recreated")
		return nil
	}

	ok, err := repo.EnsureIndex(context.Background(), 8, false)
	if err != nil || ok {
		t.Errorf("got %v, %v", ok, err)
	}
}

func TestEnsureIndex_Recreate(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.WithHNSW(HNSWConfig{M: 32})
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return true, nil }

	dropped := false
	ms.dropIndexFn = func(_ context.Context, name string, deleteDocs bool) error {
		dropped = name == "test:idx" && deleteDocs
		return nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		for _, f := range def.Fields {
			if f.Type == db.IndexFieldVector && (f.VectorM != 32 || f.VectorEFConstruct != 200) {
				t.Errorf("hnsw = %d/%d", f.VectorM, f.VectorEFConstruct)
			}
		}
		return nil
	}

	ok, err := repo.EnsureIndex(context.Background(), 8, true)
	if err != nil || !ok {
		t.Fatalf("got %v, %v", ok, err)
	}
	if !dropped {
		t.Error("expected FT.DROPINDEX with DD")
	}
}

func TestEnsureIndex_RaceLost(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }

	ok, err := repo.EnsureIndex(context.Background(), 8, false)
	if err != nil || ok {
		t.Errorf("got %v, %v", ok, err)
	}
}

func TestUpsert_Fields(t *testing.T) {
	repo, ms := newTestRepo(t)
	scoped := mustDoc(t, domdoc.Fields{
		DocumentID:      "d2",
		Category:        "Raum",
		Question:        "Wie buche ich einen Raum?",
		Answer:          "Über das Portal.",
		TenantID:        "t1",
		ProjectID:       "p1",
		ProjectName:     "Stadthaus Mozart",
		AuthorizationID: "a1",
	})

	var got []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	vectors := [][]float32{{0.5, 0.25}, {1, 0}}
	if err := repo.Upsert(context.Background(), []domdoc.Document{publicDoc(t, "d1"), scoped}, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Key != "test:doc:d1" {
		t.Errorf("key = %q", got[0].Key)
	}
	if _, ok := got[0].Fields["project_id"]; ok {
		t.Error("public document must not store project_id")
	}
	if _, ok := got[0].Fields["answer_instructions"]; ok {
		t.Error("empty answer_instructions must not be stored")
	}
	if v := bytesToVector(got[0].Fields["embedding"]); len(v) != 2 || v[0] != 0.5 || v[1] != 0.25 {
		t.Errorf("embedding = %v", v)
	}
	if got[1].Fields["project_id"] != "p1" || got[1].Fields["authorization_id"] != "a1" ||
		got[1].Fields["project_name"] != "Stadthaus Mozart" {
		t.Errorf("scoped fields = %v", got[1].Fields)
	}
}

func TestUpsert_ReindexDropsClearedFields(t *testing.T) {
	repo, ms := newTestRepo(t)
	hashes := map[string]map[string]string{}
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		for _, it := range items {
			if it.Replace {
				delete(hashes, it.Key)
			}
			h := hashes[it.Key]
			if h == nil {
				h = map[string]string{}
				hashes[it.Key] = h
			}
			for k, v := range it.Fields {
				h[k] = v
			}
		}
		return nil
	}

	scoped := mustDoc(t, domdoc.Fields{
		DocumentID:         "d1",
		Category:           "Raum",
		Question:           "Wie buche ich einen Raum?",
		Answer:             "Über das Portal.",
		TenantID:           "t1",
		ProjectID:          "p1",
		AuthorizationID:    "a1",
		AnswerInstructions: "Kurz antworten",
	})
	if err := repo.Upsert(context.Background(), []domdoc.Document{scoped}, [][]float32{{1}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.Upsert(context.Background(), []domdoc.Document{publicDoc(t, "d1")}, [][]float32{{1}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	h := hashes["test:doc:d1"]
	for _, f := range []string{"project_id", "authorization_id", "answer_instructions"} {
		if v, ok := h[f]; ok {
			t.Errorf("stale %s = %q survived re-index", f, v)
		}
	}
}

func TestUpsert_LengthMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.Upsert(context.Background(), []domdoc.Document{publicDoc(t, "d1")}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error {
		return &db.Error{Op: db.OpHSet, Err: errors.New("oom")}
	}
	err := repo.Upsert(context.Background(), []domdoc.Document{publicDoc(t, "d1")}, [][]float32{{1}})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "test:doc:d1" {
			t.Errorf("key = %q", key)
		}
		return map[string]string{
			"document_id": "d1",
			"category":    "Allgemein",
			"question":    "Frage",
			"answer":      "Antwort",
			"tenant_id":   "t1",
			"project_id":  "p1",
			"embedding":   "\x00\x00\x80\x3f",
		}, nil
	}

	doc, err := repo.Get(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "d1" || doc.ProjectID() != "p1" || doc.AuthorizationID() != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	tenant, _ := filter.Term("tenant_id", "t1")
	ms.searchCountFn = func(_ context.Context, index string, f filter.Node) (int, error) {
		if index != "test:idx" || f.Key() != "tenant_id" {
			t.Errorf("count(%q, %v)", index, f)
		}
		return 7, nil
	}

	n, err := repo.Count(context.Background(), tenant)
	if err != nil || n != 7 {
		t.Errorf("got %d, %v", n, err)
	}
}
