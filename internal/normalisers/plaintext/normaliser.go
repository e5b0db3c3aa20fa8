package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/yaml",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise returns the whole text as a single record named after the file.
// Oversized text is split later by the chunker.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.KnowledgeDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.TrimSpace(strings.ReplaceAll(string(raw.Content), "\r\n", "\n"))
	if content == "" {
		return nil, nil
	}

	title := raw.FallbackTitle()
	return []domain.KnowledgeDocument{{
		SectionTitle: title,
		Summary:      content,
		TitlePath:    title,
	}}, nil
}
