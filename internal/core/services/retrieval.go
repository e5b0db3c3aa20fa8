package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService combines vector similarity with a hard title filter.
type RetrievalService struct {
	knowledge *KnowledgeBase
	groups    driven.GroupStore
}

// NewRetrievalService creates a retrieval service.
// The groups parameter is optional; without it group-scoped searches fail.
func NewRetrievalService(knowledge *KnowledgeBase, groups driven.GroupStore) *RetrievalService {
	return &RetrievalService{knowledge: knowledge, groups: groups}
}

// Search returns at most TopK hits by descending similarity. A title filter
// is applied as a case-sensitive substring match and is never relaxed.
func (s *RetrievalService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.Reference, error) {
	logger.Section("Knowledge Search")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.Reference{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	logger.Debug("TopK: %d, title filter: %q, group: %q", topK, opts.TitleFilter, opts.Group)

	allow, err := s.groupScope(ctx, opts.Group)
	if err != nil {
		return nil, err
	}
	if allow != nil && len(allow) == 0 {
		logger.Debug("Group %q is empty, returning no results", opts.Group)
		return []domain.Reference{}, nil
	}

	hits, err := s.knowledge.Search(ctx, query, topK, opts.TitleFilter, allow)
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	for i := range hits {
		hits[i].Document.Embedding = nil
	}
	logger.Info("Final results: %d", len(hits))
	return hits, nil
}

// ReferenceSections finds reference material for an outline section, using
// its title as the keyword filter and title plus description as the query.
func (s *RetrievalService) ReferenceSections(
	ctx context.Context, title, description string, topK int,
) ([]domain.Reference, error) {
	if topK <= 0 {
		topK = domain.ReferenceTopK
	}
	query := strings.TrimSpace(title + " " + description)
	return s.Search(ctx, query, domain.SearchOptions{TopK: topK, TitleFilter: title})
}

// groupScope returns the allowed doc IDs for a group, or nil for no scope.
func (s *RetrievalService) groupScope(ctx context.Context, name string) (map[string]bool, error) {
	if name == "" {
		return nil, nil
	}
	if s.groups == nil {
		return nil, fmt.Errorf("group scope %q: group store not configured", name)
	}
	group, err := s.groups.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("group scope %q: %w", name, err)
	}
	allow := make(map[string]bool, len(group.DocIDs))
	for _, id := range group.DocIDs {
		allow[id] = true
	}
	return allow, nil
}
