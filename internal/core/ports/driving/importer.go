package driving

import "context"

// ImportResult summarises one knowledge import.
type ImportResult struct {
	// Files is the number of files that produced stored documents.
	Files int `json:"files"`

	// Records is the number of records handed to the knowledge store.
	Records int `json:"records"`

	// DocIDs lists the linked document IDs in import order.
	DocIDs []string `json:"doc_ids"`

	// Skipped lists files with no supported format or no text.
	Skipped []string `json:"skipped,omitempty"`
}

// ImportService turns files into knowledge documents.
type ImportService interface {
	// ImportFiles imports files and directories (recursively) into a group.
	// A failing file does not stop the others; failures are joined into
	// the returned error alongside a partial result.
	ImportFiles(ctx context.Context, group string, paths []string) (*ImportResult, error)
}
