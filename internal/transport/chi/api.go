package chi

// ErrorCode is a machine-readable error kind.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeRetrievalFailed        ErrorCode = "retrieval_failed"
	ErrorCodeResolverDisabled       ErrorCode = "resolver_disabled"
	ErrorCodeCatalogInvalid         ErrorCode = "catalog_invalid"
	ErrorCodeConfigurationError     ErrorCode = "configuration_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Channel names the failed retrieval channel.
	Channel string `json:"channel,omitempty"`
}

// SearchRequest is the body of POST /v1/search and POST /v1/retrieve.
type SearchRequest struct {
	Question         string             `json:"question"`
	Budget           *int               `json:"budget,omitempty"`
	TopK             *int               `json:"top_k,omitempty"`
	TenantID         *string            `json:"tenant_id,omitempty"`
	ScopeID          *string            `json:"scope_id,omitempty"`
	AuthorizationIDs []string           `json:"authorization_ids,omitempty"`
	FieldWeights     map[string]float64 `json:"field_weights,omitempty"`
	// ResolveScope enables project resolution when no scope_id is given (default true).
	ResolveScope *bool `json:"resolve_scope,omitempty"`
}

// Hit is one retrieved document.
type Hit struct {
	DocumentID         string  `json:"document_id"`
	Score              float64 `json:"score"`
	Category           string  `json:"category"`
	Question           string  `json:"question"`
	Answer             string  `json:"answer"`
	AnswerInstructions *string `json:"answer_instructions"`
	ProjectID          *string `json:"project_id"`
	ProjectName        *string `json:"project_name"`
	AuthorizationID    *string `json:"authorization_id"`
	TextRank           *int    `json:"text_rank,omitempty"`
	VectorRank         *int    `json:"vector_rank,omitempty"`
}

// Entity is a resolved catalog entity.
type Entity struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// SearchResponse is the body of POST /v1/search.
type SearchResponse struct {
	Entity      *Entity `json:"entity"`
	Items       []Hit   `json:"items"`
	TextCount   int     `json:"text_count"`
	VectorCount int     `json:"vector_count"`
}

// RetrieveResponse is the body of POST /v1/retrieve.
type RetrieveResponse struct {
	Text   []Hit `json:"text"`
	Vector []Hit `json:"vector"`
}

// ResolveParams are the query parameters of GET /v1/resolve.
type ResolveParams struct {
	Text string `json:"text"`
}

// ResolveResponse is the body of GET /v1/resolve.
type ResolveResponse struct {
	Match  bool    `json:"match"`
	Entity *Entity `json:"entity,omitempty"`
}

// ReloadResponse is the body of POST /v1/catalog/reload.
type ReloadResponse struct {
	Entities int `json:"entities"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Document is a stored corpus record returned by GET /v1/documents/{documentID}.
type Document struct {
	DocumentID         string  `json:"document_id"`
	TenantID           string  `json:"tenant_id"`
	Category           string  `json:"category"`
	Question           string  `json:"question"`
	Answer             string  `json:"answer"`
	AnswerInstructions *string `json:"answer_instructions"`
	ProjectID          *string `json:"project_id"`
	ProjectName        *string `json:"project_name"`
	AuthorizationID    *string `json:"authorization_id"`
}
