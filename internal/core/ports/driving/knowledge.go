package driving

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// RetrievalService answers knowledge queries.
type RetrievalService interface {
	// Search returns the hits closest to the query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Reference, error)

	// ReferenceSections returns reference material for one outline section.
	ReferenceSections(ctx context.Context, title, description string, topK int) ([]domain.Reference, error)
}

// LibraryService owns the lifecycle of knowledge documents across the
// knowledge store and the group membership store.
type LibraryService interface {
	// Ingest stores the records under one group, then links them.
	// Records without a DocID are assigned one. Returns the linked doc IDs.
	Ingest(ctx context.Context, group string, docs []domain.KnowledgeDocument) ([]string, error)

	// Get returns a projection of a stored document.
	Get(ctx context.Context, docID string, fields ...domain.DocumentField) (*domain.KnowledgeDocument, error)

	// DeleteDocument removes the rows, then the group references.
	DeleteDocument(ctx context.Context, docID string) error

	// CreateGroup adds an empty group.
	CreateGroup(ctx context.Context, name, description string) error

	// DeleteGroup deletes every referenced document, then the group.
	DeleteGroup(ctx context.Context, name string) error

	// ListGroups returns all groups with their references.
	ListGroups(ctx context.Context) ([]domain.Group, error)

	// GroupDocuments returns projections of a group's documents.
	GroupDocuments(ctx context.Context, name string) ([]domain.KnowledgeDocument, error)

	// Reconcile reports divergence between the two stores and, when prune
	// is set, removes dangling references.
	Reconcile(ctx context.Context, prune bool) (*domain.ReconcileReport, error)

	// Clear removes every document and empties every group.
	Clear(ctx context.Context) error

	// Stats summarises the stores.
	Stats(ctx context.Context) (*domain.KnowledgeStats, error)
}
