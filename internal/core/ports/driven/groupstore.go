package driven

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// GroupStore persists group definitions and their document back-references.
// It never touches the knowledge store; cascades are sequenced by the
// library service.
type GroupStore interface {
	// List returns all groups in creation order.
	List(ctx context.Context) ([]domain.Group, error)

	// Get returns a group by name, or domain.ErrNotFound.
	Get(ctx context.Context, name string) (*domain.Group, error)

	// Create adds a group. Returns domain.ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, name, description string) error

	// Delete removes a group and returns the document IDs it referenced.
	Delete(ctx context.Context, name string) ([]string, error)

	// AddDocument links a document to a group, creating the group if needed.
	// Linking an already linked document is a no-op.
	AddDocument(ctx context.Context, group, docID string) error

	// RemoveDocument unlinks a document from every group.
	RemoveDocument(ctx context.Context, docID string) error

	// ClearDocuments empties every group's references, keeping the groups.
	ClearDocuments(ctx context.Context) error
}
