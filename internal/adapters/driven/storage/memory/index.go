package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure DocumentIndex implements the interface.
var _ driven.DocumentIndex = (*DocumentIndex)(nil)

// DocumentIndex is an in-memory implementation of driven.DocumentIndex.
//
// With buffering enabled, inserts and deletes are queued and only become
// visible to Get, Count, Search and DocIDs after Flush, which mimics an
// index whose statistics lag behind writes.
type DocumentIndex struct {
	mu       sync.RWMutex
	rows     []domain.KnowledgeDocument
	buffered bool
	pending  []pendingOp
}

type pendingOp struct {
	insert []domain.KnowledgeDocument
	delete string
}

// NewDocumentIndex creates an unbuffered in-memory index.
func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{}
}

// NewBufferedDocumentIndex creates an index whose writes apply on Flush.
func NewBufferedDocumentIndex() *DocumentIndex {
	return &DocumentIndex{buffered: true}
}

// Insert appends rows.
func (s *DocumentIndex) Insert(_ context.Context, docs []domain.KnowledgeDocument) error {
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return domain.ErrInvalidInput
		}
	}
	rows := make([]domain.KnowledgeDocument, len(docs))
	for i, d := range docs {
		d.Embedding = slices.Clone(d.Embedding)
		rows[i] = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffered {
		s.pending = append(s.pending, pendingOp{insert: rows})
		return nil
	}
	s.rows = append(s.rows, rows...)
	return nil
}

// DeleteByDocID removes every row for the document.
func (s *DocumentIndex) DeleteByDocID(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffered {
		s.pending = append(s.pending, pendingOp{delete: docID})
		return nil
	}
	s.deleteLocked(docID)
	return nil
}

func (s *DocumentIndex) deleteLocked(docID string) {
	s.rows = slices.DeleteFunc(s.rows, func(d domain.KnowledgeDocument) bool {
		return d.DocID == docID
	})
}

// Get returns the first row for the document.
func (s *DocumentIndex) Get(_ context.Context, docID string) (*domain.KnowledgeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.rows {
		if d.DocID == docID {
			doc := d
			doc.Embedding = slices.Clone(d.Embedding)
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Search scans every row and ranks by cosine similarity.
func (s *DocumentIndex) Search(
	_ context.Context, query []float32, k int, titleFilter string, allow map[string]bool,
) ([]domain.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.Reference
	for _, d := range s.rows {
		if titleFilter != "" && !strings.Contains(d.SectionTitle, titleFilter) {
			continue
		}
		if allow != nil && !allow[d.DocID] {
			continue
		}
		doc := d
		doc.Embedding = nil
		hits = append(hits, domain.Reference{Document: doc, Score: domain.CosineSimilarity(query, d.Embedding)})
	}
	return domain.TopReferences(hits, k), nil
}

// Count returns the number of applied rows.
func (s *DocumentIndex) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

// DocIDs returns distinct document IDs in insertion order.
func (s *DocumentIndex) DocIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, d := range s.rows {
		if !seen[d.DocID] {
			seen[d.DocID] = true
			ids = append(ids, d.DocID)
		}
	}
	return ids, nil
}

// Flush applies queued writes in order.
func (s *DocumentIndex) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range s.pending {
		if op.insert != nil {
			s.rows = append(s.rows, op.insert...)
		} else {
			s.deleteLocked(op.delete)
		}
	}
	s.pending = nil
	return nil
}

// Clear removes every row, including queued writes.
func (s *DocumentIndex) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.pending = nil
	return nil
}

// Close releases resources (no-op).
func (s *DocumentIndex) Close() error {
	return nil
}
