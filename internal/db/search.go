package db

import "github.com/kailas-cloud/qadex/internal/domain/search/filter"

// WeightedField is a TEXT field searched with a relevance weight.
type WeightedField struct {
	Name   string
	Weight float64
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filter       filter.Node
	Vector       []float32
	K            int
	EFRuntime    int // HNSW candidate list size at query time, 0 = server default
	ReturnFields []string
}

// TextQuery is the input for field-weighted full-text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Fields       []WeightedField
	Filter       filter.Node
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
