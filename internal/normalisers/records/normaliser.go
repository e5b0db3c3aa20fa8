// Package records reads pre-split knowledge records from JSON.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles JSON arrays of knowledge records:
//
//	[{"doc_id": "optional", "section_title": "...", "summary": "...", "title_path": "..."}]
type Normaliser struct{}

// New creates a new records normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/json"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise decodes the records. A single object is accepted as a
// one-record array. Records with an empty summary are dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.KnowledgeDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.TrimSpace(string(raw.Content))
	if content == "" {
		return nil, nil
	}

	var decoded []domain.KnowledgeDocument
	if strings.HasPrefix(content, "{") {
		var one domain.KnowledgeDocument
		if err := json.Unmarshal([]byte(content), &one); err != nil {
			return nil, fmt.Errorf("%w: decode record: %w", domain.ErrInvalidInput, err)
		}
		decoded = []domain.KnowledgeDocument{one}
	} else if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode records: %w", domain.ErrInvalidInput, err)
	}

	docs := make([]domain.KnowledgeDocument, 0, len(decoded))
	for _, d := range decoded {
		if strings.TrimSpace(d.Summary) == "" {
			continue
		}
		if d.TitlePath == "" {
			d.TitlePath = d.SectionTitle
		}
		docs = append(docs, d)
	}
	return docs, nil
}
