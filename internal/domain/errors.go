package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed search or resolve request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidDocument signals a corpus record that fails validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidAccessContext signals an authorization context without a tenant.
	ErrInvalidAccessContext = errors.New("invalid access context")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRetrieval signals a failed retrieval channel query.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrCatalogEmpty signals an entity catalog without usable entries.
	ErrCatalogEmpty = errors.New("entity catalog is empty")
	// ErrResolverDisabled signals that no entity catalog is configured.
	ErrResolverDisabled = errors.New("entity resolver is not configured")
)

// Retrieval channel names.
const (
	ChannelText   = "text"
	ChannelVector = "vector"
)

// RetrievalError reports which retrieval channel failed.
// It matches both ErrRetrieval and the underlying cause with errors.Is.
type RetrievalError struct {
	Channel string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %s channel: %v", ErrRetrieval.Error(), e.Channel, e.Err)
}

func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrieval, e.Err} }

// NewRetrievalError wraps err as a failure of the given channel.
func NewRetrievalError(channel string, err error) error {
	return &RetrievalError{Channel: channel, Err: err}
}
