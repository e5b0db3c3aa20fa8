package mcp

import (
	"context"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	refs []domain.Reference
	err  error

	lastQuery string
	lastOpts  domain.SearchOptions
	lastTopK  int
}

func (m *mockRetrievalService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.Reference, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.refs, m.err
}

func (m *mockRetrievalService) ReferenceSections(_ context.Context, title, _ string, topK int) ([]domain.Reference, error) {
	m.lastQuery = title
	m.lastTopK = topK
	return m.refs, m.err
}

// mockLibraryService is a mock implementation of driving.LibraryService.
type mockLibraryService struct {
	groups []domain.Group
	docs   []domain.KnowledgeDocument
	doc    *domain.KnowledgeDocument
	stats  *domain.KnowledgeStats
	err    error
}

func (m *mockLibraryService) Ingest(_ context.Context, _ string, _ []domain.KnowledgeDocument) ([]string, error) {
	return nil, m.err
}

func (m *mockLibraryService) Get(_ context.Context, _ string, _ ...domain.DocumentField) (*domain.KnowledgeDocument, error) {
	return m.doc, m.err
}

func (m *mockLibraryService) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockLibraryService) CreateGroup(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockLibraryService) DeleteGroup(_ context.Context, _ string) error {
	return m.err
}

func (m *mockLibraryService) ListGroups(_ context.Context) ([]domain.Group, error) {
	return m.groups, m.err
}

func (m *mockLibraryService) GroupDocuments(_ context.Context, _ string) ([]domain.KnowledgeDocument, error) {
	return m.docs, m.err
}

func (m *mockLibraryService) Reconcile(_ context.Context, prune bool) (*domain.ReconcileReport, error) {
	return &domain.ReconcileReport{Pruned: prune}, m.err
}

func (m *mockLibraryService) Clear(_ context.Context) error {
	return m.err
}

func (m *mockLibraryService) Stats(_ context.Context) (*domain.KnowledgeStats, error) {
	return m.stats, m.err
}
