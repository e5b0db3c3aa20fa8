// Package limits truncates knowledge records to the stored field limits.
package limits

import (
	"context"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor truncates SectionTitle, Summary and TitlePath to their
// maximum lengths and drops records left without a summary.
type Processor struct{}

// New creates a limits processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "limits"
}

// Process returns the records cut to size.
func (p *Processor) Process(_ context.Context, docs []domain.KnowledgeDocument) ([]domain.KnowledgeDocument, error) {
	out := make([]domain.KnowledgeDocument, 0, len(docs))
	for _, d := range docs {
		d.SectionTitle = truncate(strings.TrimSpace(d.SectionTitle), domain.MaxSectionTitleLength)
		d.TitlePath = truncate(strings.TrimSpace(d.TitlePath), domain.MaxTitlePathLength)
		d.Summary = truncate(strings.TrimSpace(d.Summary), domain.MaxSummaryLength)
		if d.Summary == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
