package driven

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// DocumentIndex stores knowledge rows with their embeddings and answers
// cosine nearest-neighbour queries.
//
// Implementations may buffer writes; Count and Search are then allowed to
// lag until Flush is called.
type DocumentIndex interface {
	// Insert appends rows. Every row must carry an embedding.
	Insert(ctx context.Context, docs []domain.KnowledgeDocument) error

	// DeleteByDocID removes every row with the given document ID.
	// Deleting an unknown ID is not an error.
	DeleteByDocID(ctx context.Context, docID string) error

	// Get returns the first row for the document ID.
	// Returns domain.ErrNotFound when no row exists.
	Get(ctx context.Context, docID string) (*domain.KnowledgeDocument, error)

	// Search returns up to k rows closest to the query vector, by descending
	// cosine similarity. A non-empty titleFilter keeps only rows whose section
	// title contains it. A non-nil allow set keeps only those document IDs.
	Search(ctx context.Context, query []float32, k int, titleFilter string, allow map[string]bool) ([]domain.Reference, error)

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)

	// DocIDs returns the distinct document IDs in the index.
	DocIDs(ctx context.Context) ([]string, error)

	// Flush applies any buffered writes.
	Flush(ctx context.Context) error

	// Clear removes every row.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
