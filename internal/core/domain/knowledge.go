package domain

import "unicode/utf8"

// Field length limits of a stored knowledge record, in characters.
const (
	MaxSectionTitleLength = 512
	MaxSummaryLength      = 8192
	MaxTitlePathLength    = 1024
)

// KnowledgeDocument is one retrievable row of the knowledge corpus.
// Rows sharing a DocID belong to the same uploaded document and are
// deleted together. Rows are never updated in place.
type KnowledgeDocument struct {
	// DocID identifies the source document.
	DocID string `json:"doc_id"`

	// SectionTitle is the heading used for keyword filtering.
	SectionTitle string `json:"section_title"`

	// Summary is the text that is embedded and returned as reference material.
	Summary string `json:"summary"`

	// TitlePath is the heading breadcrumb, e.g. "Company > Staff > Training".
	TitlePath string `json:"title_path"`

	// Embedding is computed from Summary at insert time.
	Embedding []float32 `json:"-"`
}

// Validate checks the record against the stored field limits.
func (d KnowledgeDocument) Validate() error {
	switch {
	case d.DocID == "":
		return ErrInvalidInput
	case utf8.RuneCountInString(d.SectionTitle) > MaxSectionTitleLength:
		return ErrInvalidInput
	case utf8.RuneCountInString(d.Summary) > MaxSummaryLength:
		return ErrInvalidInput
	case utf8.RuneCountInString(d.TitlePath) > MaxTitlePathLength:
		return ErrInvalidInput
	}
	return nil
}

// DocumentField names a projectable field of a KnowledgeDocument.
type DocumentField string

// Projectable fields.
const (
	FieldSectionTitle DocumentField = "section_title"
	FieldSummary      DocumentField = "summary"
	FieldTitlePath    DocumentField = "title_path"
	FieldEmbedding    DocumentField = "embedding"
)

// DefaultDocumentFields is the projection used when none is requested.
var DefaultDocumentFields = []DocumentField{FieldSectionTitle, FieldSummary, FieldTitlePath}

// IsValid returns true if the field is recognised.
func (f DocumentField) IsValid() bool {
	switch f {
	case FieldSectionTitle, FieldSummary, FieldTitlePath, FieldEmbedding:
		return true
	default:
		return false
	}
}

// Project returns a copy of d holding only DocID and the given fields.
func (d KnowledgeDocument) Project(fields ...DocumentField) KnowledgeDocument {
	if len(fields) == 0 {
		fields = DefaultDocumentFields
	}
	out := KnowledgeDocument{DocID: d.DocID}
	for _, f := range fields {
		switch f {
		case FieldSectionTitle:
			out.SectionTitle = d.SectionTitle
		case FieldSummary:
			out.Summary = d.Summary
		case FieldTitlePath:
			out.TitlePath = d.TitlePath
		case FieldEmbedding:
			out.Embedding = d.Embedding
		}
	}
	return out
}

// Reference is a retrieval hit.
type Reference struct {
	// Document is the matched row without its embedding.
	Document KnowledgeDocument `json:"document"`

	// Score is the cosine similarity to the query (higher is closer).
	Score float64 `json:"score"`
}

// DefaultGroupName is the group every install starts with.
const DefaultGroupName = "Uncategorized"

// Group is a named set of knowledge document references.
type Group struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DocIDs      []string `json:"-"`
}

// DocumentCount returns the number of referenced documents.
func (g Group) DocumentCount() int {
	return len(g.DocIDs)
}

// ReconcileReport lists the divergences found between the group
// membership store and the knowledge store.
type ReconcileReport struct {
	// Dangling maps group name to referenced doc IDs missing from the store.
	Dangling map[string][]string `json:"dangling"`

	// Unreferenced lists stored doc IDs no group points to.
	Unreferenced []string `json:"unreferenced"`

	// Pruned reports whether dangling references were removed.
	Pruned bool `json:"pruned"`
}

// DanglingCount returns the total number of dangling references.
func (r ReconcileReport) DanglingCount() int {
	n := 0
	for _, ids := range r.Dangling {
		n += len(ids)
	}
	return n
}

// KnowledgeStats summarises the knowledge store.
type KnowledgeStats struct {
	Rows      int `json:"rows"`
	Documents int `json:"documents"`
	Groups    int `json:"groups"`
}
