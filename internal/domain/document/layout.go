package document

import "strings"

// Stored hash field names of a corpus document.
const (
	FieldDocumentID         = "document_id"
	FieldCategory           = "category"
	FieldQuestion           = "question"
	FieldAnswer             = "answer"
	FieldAnswerInstructions = "answer_instructions"
	FieldTenantID           = "tenant_id"
	FieldProjectID          = "project_id"
	FieldProjectName        = "project_name"
	FieldAuthorizationID    = "authorization_id"
	FieldEmbedding          = "embedding"
)

// DefaultKeyPrefix namespaces all corpus keys.
const DefaultKeyPrefix = "qadex:"

// HitFields are the stored fields projected into search hits.
var HitFields = []string{
	FieldDocumentID,
	FieldCategory,
	FieldQuestion,
	FieldAnswer,
	FieldAnswerInstructions,
	FieldTenantID,
	FieldProjectID,
	FieldProjectName,
	FieldAuthorizationID,
}

// Layout names the index and hash keys of one corpus.
type Layout struct {
	prefix string
}

// NewLayout creates a layout under prefix ("" means DefaultKeyPrefix).
func NewLayout(prefix string) Layout {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Layout{prefix: prefix}
}

// Index returns the FT index name.
func (l Layout) Index() string { return l.prefix + "idx" }

// KeyPrefix returns the prefix shared by all document hashes.
func (l Layout) KeyPrefix() string { return l.prefix + "doc:" }

// Key returns the hash key of document id.
func (l Layout) Key(id string) string { return l.KeyPrefix() + id }

// IDFromKey strips the document key prefix.
func (l Layout) IDFromKey(key string) string { return strings.TrimPrefix(key, l.KeyPrefix()) }
