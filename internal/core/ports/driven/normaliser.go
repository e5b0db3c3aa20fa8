package driven

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// Normaliser splits a raw document into knowledge records.
// Each normaliser handles specific MIME types (e.g., Markdown, HTML).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise returns the document's sections in document order.
	// DocID is left empty; the registry assigns one per document.
	Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.KnowledgeDocument, error)
}
