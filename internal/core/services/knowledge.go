package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// DefaultEmbedBatchSize is the number of summaries embedded per request.
const DefaultEmbedBatchSize = 32

// KnowledgeBase is the knowledge store: it embeds summaries and keeps the
// resulting rows in a document index.
type KnowledgeBase struct {
	index     driven.DocumentIndex
	embedder  driven.EmbeddingService
	batchSize int
}

// NewKnowledgeBase creates a knowledge store over an index and an embedder.
func NewKnowledgeBase(index driven.DocumentIndex, embedder driven.EmbeddingService) *KnowledgeBase {
	return &KnowledgeBase{index: index, embedder: embedder, batchSize: DefaultEmbedBatchSize}
}

// SetBatchSize changes how many summaries are embedded per request.
func (k *KnowledgeBase) SetBatchSize(n int) {
	if n > 0 {
		k.batchSize = n
	}
}

// Insert embeds each summary and appends the rows batch by batch. It is not
// transactional: on failure the returned count says how many records were
// stored before it.
func (k *KnowledgeBase) Insert(ctx context.Context, docs []domain.KnowledgeDocument) (int, error) {
	if k.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %d (%q): %w", i, docs[i].SectionTitle, err)
		}
	}

	inserted := 0
	for start := 0; start < len(docs); start += k.batchSize {
		end := min(start+k.batchSize, len(docs))
		batch := make([]domain.KnowledgeDocument, end-start)
		copy(batch, docs[start:end])

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Summary
		}
		vectors, err := k.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return inserted, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return inserted, fmt.Errorf("embed batch at %d: got %d vectors for %d texts", start, len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}

		if err := k.index.Insert(ctx, batch); err != nil {
			return inserted, fmt.Errorf("insert batch at %d: %w", start, err)
		}
		inserted += len(batch)
		logger.Debug("Knowledge: inserted %d/%d records", inserted, len(docs))
	}
	return inserted, nil
}

// Delete removes every row of a document. Unknown IDs are not an error.
func (k *KnowledgeBase) Delete(ctx context.Context, docID string) error {
	if err := k.index.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// Get returns a projection of the document's first row, or domain.ErrNotFound.
func (k *KnowledgeBase) Get(ctx context.Context, docID string, fields ...domain.DocumentField) (*domain.KnowledgeDocument, error) {
	for _, f := range fields {
		if !f.IsValid() {
			return nil, fmt.Errorf("unknown field %q: %w", f, domain.ErrInvalidInput)
		}
	}
	doc, err := k.index.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	projected := doc.Project(fields...)
	return &projected, nil
}

// Count returns the number of stored rows. It may lag behind recent writes
// until Flush is called.
func (k *KnowledgeBase) Count(ctx context.Context) (int, error) {
	return k.index.Count(ctx)
}

// Flush applies buffered writes.
func (k *KnowledgeBase) Flush(ctx context.Context) error {
	return k.index.Flush(ctx)
}

// DocIDs returns the distinct stored document IDs.
func (k *KnowledgeBase) DocIDs(ctx context.Context) ([]string, error) {
	return k.index.DocIDs(ctx)
}

// Clear removes every row.
func (k *KnowledgeBase) Clear(ctx context.Context) error {
	return k.index.Clear(ctx)
}

// Search embeds the query and runs a filtered nearest-neighbour search.
func (k *KnowledgeBase) Search(
	ctx context.Context, query string, topK int, titleFilter string, allow map[string]bool,
) ([]domain.Reference, error) {
	if k.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vector, err := k.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return k.index.Search(ctx, vector, topK, titleFilter, allow)
}
