package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

type recordingEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (r *recordingEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	r.texts = append(r.texts, text)
	if r.err != nil {
		return EmbeddingResult{}, r.err
	}
	return EmbeddingResult{Embedding: r.vec, PromptTokens: 2, TotalTokens: 2}, nil
}

type recordingBatchEmbedder struct {
	recordingEmbedder
	batch     BatchEmbeddingResult
	batchErr  error
	batchSeen []string
}

func (r *recordingBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	r.batchSeen = texts
	return r.batch, r.batchErr
}

func TestInstructionEmbedder_Prefix(t *testing.T) {
	inner := &recordingEmbedder{vec: []float32{1, 0}}
	emb := NewInstructionEmbedder(inner, "query: ")

	if _, err := emb.Embed(context.Background(), "wann ist die auszahlung"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.texts[0] != "query: wann ist die auszahlung" {
		t.Errorf("got %q", inner.texts[0])
	}
}

func TestInstructionEmbedder_WrapsError(t *testing.T) {
	boom := errors.New("provider down")
	emb := NewInstructionEmbedder(&recordingEmbedder{err: boom}, "query: ")

	_, err := emb.Embed(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestInstructionEmbedder_BatchUsesNativeBatch(t *testing.T) {
	inner := &recordingBatchEmbedder{batch: BatchEmbeddingResult{Embeddings: [][]float32{{1}, {2}}}}
	emb := NewInstructionEmbedder(inner, "passage: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(res.Embeddings))
	}
	if inner.batchSeen[0] != "passage: a" || inner.batchSeen[1] != "passage: b" {
		t.Errorf("unexpected batch input %v", inner.batchSeen)
	}
	if len(inner.texts) != 0 {
		t.Errorf("single Embed should not be called, got %v", inner.texts)
	}
}

func TestEmbedBatch_FallbackSumsUsage(t *testing.T) {
	inner := &recordingEmbedder{vec: []float32{0.5}}

	res, err := EmbedBatch(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(res.Embeddings))
	}
	if res.TotalTokens != 6 || res.PromptTokens != 6 {
		t.Errorf("usage = %d/%d, want 6/6", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	inner := &recordingBatchEmbedder{batch: BatchEmbeddingResult{Embeddings: [][]float32{{1}}}}

	_, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	boom := errors.New("fail")
	inner := &recordingEmbedder{err: boom}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if len(inner.texts) != 1 {
		t.Errorf("expected to stop after first failure, embedded %d", len(inner.texts))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_DimMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1}, []float32{1, 2})
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}
