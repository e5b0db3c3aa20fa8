package driven

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// on MIME type.
type NormaliserRegistry interface {
	// Normalise splits a raw document using the best matching normaliser.
	// Every returned record carries the same, freshly assigned DocID.
	Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.KnowledgeDocument, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
