// Package chunker splits oversized knowledge records into overlapping parts.
package chunker

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per part.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits record summaries longer than the chunk size into
// consecutive parts. Parts keep the record's DocID, SectionTitle and
// TitlePath, so they are retrieved and deleted as one document.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits every oversized record; others pass through unchanged.
func (p *Processor) Process(ctx context.Context, docs []domain.KnowledgeDocument) ([]domain.KnowledgeDocument, error) {
	out := make([]domain.KnowledgeDocument, 0, len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runes := []rune(doc.Summary)
		if len(runes) <= p.chunkSize {
			out = append(out, doc)
			continue
		}

		start := 0
		for start < len(runes) {
			end := min(start+p.chunkSize, len(runes))
			if end < len(runes) {
				end = p.breakPoint(runes, start, end)
			}

			part := doc
			part.Summary = strings.TrimSpace(string(runes[start:end]))
			part.Embedding = nil
			if part.Summary != "" {
				out = append(out, part)
			}

			if end == len(runes) {
				break
			}
			// Move start forward by (chunk - overlap), always making progress
			next := end - p.overlap
			if next <= start {
				next = end
			}
			start = next
		}
	}

	return out, nil
}

// breakPoint moves end back to just after the last whitespace in the
// second half of the window, so words are not cut where avoidable.
func (p *Processor) breakPoint(runes []rune, start, end int) int {
	floor := start + p.chunkSize/2
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
