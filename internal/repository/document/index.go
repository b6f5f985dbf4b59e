package document

import (
	"github.com/kailas-cloud/qadex/internal/db"
	domdoc "github.com/kailas-cloud/qadex/internal/domain/document"
)

// buildIndex creates the corpus IndexDefinition: TEXT fields for lexical
// search, TAG fields for the access filter, an HNSW/COSINE vector field.
func buildIndex(layout domdoc.Layout, vectorDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(layout.Index()).
		Prefix(layout.KeyPrefix()).
		Text(domdoc.FieldQuestion).
		Text(domdoc.FieldAnswer).
		Text(domdoc.FieldCategory).
		Text(domdoc.FieldProjectName).
		Tag(domdoc.FieldDocumentID).
		Tag(domdoc.FieldTenantID).
		OptionalTag(domdoc.FieldProjectID).
		OptionalTag(domdoc.FieldAuthorizationID).
		VectorHNSW(domdoc.FieldEmbedding, vectorDim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}
