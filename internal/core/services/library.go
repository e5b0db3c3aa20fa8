package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService sequences every change that touches both the knowledge
// store and the group membership store. Writes go to the knowledge store
// first and are linked afterwards; deletes remove rows first and unlink
// afterwards. A crash in between leaves at worst a dangling reference,
// which Reconcile repairs.
type LibraryService struct {
	knowledge *KnowledgeBase
	groups    driven.GroupStore
}

// NewLibraryService creates a library service.
func NewLibraryService(knowledge *KnowledgeBase, groups driven.GroupStore) *LibraryService {
	return &LibraryService{knowledge: knowledge, groups: groups}
}

// Ingest stores records and links their documents to a group. Records with
// an empty DocID get a fresh one. Only documents whose rows were all stored
// are linked.
func (s *LibraryService) Ingest(ctx context.Context, group string, docs []domain.KnowledgeDocument) ([]string, error) {
	if group == "" {
		group = domain.DefaultGroupName
	}
	if len(docs) == 0 {
		return nil, nil
	}

	for i := range docs {
		if docs[i].DocID == "" {
			docs[i].DocID = uuid.New().String()
		}
	}

	inserted, insertErr := s.knowledge.Insert(ctx, docs)
	if insertErr != nil {
		logger.Warn("Ingest into %q stopped after %d of %d records: %v", group, inserted, len(docs), insertErr)
	}

	complete := completeDocIDs(docs, inserted)
	for _, id := range complete {
		if err := s.groups.AddDocument(ctx, group, id); err != nil {
			return nil, errors.Join(insertErr, fmt.Errorf("link %s to %q: %w", id, group, err))
		}
	}
	logger.Info("Ingested %d records as %d documents into %q", inserted, len(complete), group)

	if insertErr != nil {
		return complete, fmt.Errorf("ingest: %w", insertErr)
	}
	return complete, nil
}

// completeDocIDs returns, in first-seen order, the doc IDs whose every row
// lies within the first n records.
func completeDocIDs(docs []domain.KnowledgeDocument, n int) []string {
	incomplete := make(map[string]bool)
	for _, d := range docs[n:] {
		incomplete[d.DocID] = true
	}
	seen := make(map[string]bool)
	var ids []string
	for _, d := range docs[:n] {
		if seen[d.DocID] || incomplete[d.DocID] {
			continue
		}
		seen[d.DocID] = true
		ids = append(ids, d.DocID)
	}
	return ids
}

// Get returns a projection of a stored document.
func (s *LibraryService) Get(ctx context.Context, docID string, fields ...domain.DocumentField) (*domain.KnowledgeDocument, error) {
	return s.knowledge.Get(ctx, docID, fields...)
}

// DeleteDocument removes the document's rows, then its group references.
func (s *LibraryService) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.knowledge.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.groups.RemoveDocument(ctx, docID); err != nil {
		return fmt.Errorf("unlink %s: %w", docID, err)
	}
	return nil
}

// CreateGroup adds an empty group.
func (s *LibraryService) CreateGroup(ctx context.Context, name, description string) error {
	if name == "" {
		return fmt.Errorf("group name: %w", domain.ErrInvalidInput)
	}
	return s.groups.Create(ctx, name, description)
}

// DeleteGroup deletes every document the group references, unlinks each
// one from every other group, then deletes the group. If any document
// cannot be deleted the group is kept so the call can be retried.
func (s *LibraryService) DeleteGroup(ctx context.Context, name string) error {
	group, err := s.groups.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("delete group %q: %w", name, err)
	}

	var errs []error
	for _, id := range group.DocIDs {
		if err := s.knowledge.Delete(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.groups.RemoveDocument(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("unlink %s: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete group %q: %w", name, errors.Join(errs...))
	}

	if _, err := s.groups.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete group %q: %w", name, err)
	}
	logger.Info("Deleted group %q and %d documents", name, len(group.DocIDs))
	return nil
}

// ListGroups returns all groups with their references.
func (s *LibraryService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return s.groups.List(ctx)
}

// GroupDocuments returns projections of a group's documents. References to
// missing documents come back with only their DocID set.
func (s *LibraryService) GroupDocuments(ctx context.Context, name string) ([]domain.KnowledgeDocument, error) {
	group, err := s.groups.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}

	docs := make([]domain.KnowledgeDocument, 0, len(group.DocIDs))
	for _, id := range group.DocIDs {
		doc, err := s.knowledge.Get(ctx, id, domain.FieldSectionTitle, domain.FieldTitlePath)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			docs = append(docs, domain.KnowledgeDocument{DocID: id})
		case err != nil:
			return nil, err
		default:
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// Reconcile compares the two stores. Dangling references (group entries
// with no stored rows) are removed when prune is set. Stored documents no
// group references are only reported.
func (s *LibraryService) Reconcile(ctx context.Context, prune bool) (*domain.ReconcileReport, error) {
	logger.Section("Reconcile")
	if err := s.knowledge.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush knowledge store: %w", err)
	}

	stored, err := s.knowledge.DocIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored documents: %w", err)
	}
	inStore := make(map[string]bool, len(stored))
	for _, id := range stored {
		inStore[id] = true
	}

	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	report := &domain.ReconcileReport{Dangling: map[string][]string{}}
	referenced := make(map[string]bool)
	for _, g := range groups {
		for _, id := range g.DocIDs {
			referenced[id] = true
			if !inStore[id] {
				report.Dangling[g.Name] = append(report.Dangling[g.Name], id)
			}
		}
	}
	for _, id := range stored {
		if !referenced[id] {
			report.Unreferenced = append(report.Unreferenced, id)
		}
	}
	sort.Strings(report.Unreferenced)
	logger.Info("Dangling references: %d, unreferenced documents: %d", report.DanglingCount(), len(report.Unreferenced))

	if prune && report.DanglingCount() > 0 {
		for _, ids := range report.Dangling {
			for _, id := range ids {
				if err := s.groups.RemoveDocument(ctx, id); err != nil {
					return report, fmt.Errorf("prune %s: %w", id, err)
				}
			}
		}
		report.Pruned = true
	}
	return report, nil
}

// Clear removes every document and empties every group.
func (s *LibraryService) Clear(ctx context.Context) error {
	if err := s.knowledge.Clear(ctx); err != nil {
		return fmt.Errorf("clear knowledge store: %w", err)
	}
	if err := s.groups.ClearDocuments(ctx); err != nil {
		return fmt.Errorf("clear group references: %w", err)
	}
	return nil
}

// Stats summarises the stores.
func (s *LibraryService) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	rows, err := s.knowledge.Count(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.knowledge.DocIDs(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.KnowledgeStats{Rows: rows, Documents: len(ids), Groups: len(groups)}, nil
}
