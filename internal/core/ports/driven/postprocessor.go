package driven

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// PostProcessor rewrites normalised records before they are stored.
// PostProcessors are chained in a pipeline (e.g., chunking, limits).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the rewritten records.
	Process(ctx context.Context, docs []domain.KnowledgeDocument) ([]domain.KnowledgeDocument, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the records through all processors in order.
	Process(ctx context.Context, docs []domain.KnowledgeDocument) ([]domain.KnowledgeDocument, error)
}
