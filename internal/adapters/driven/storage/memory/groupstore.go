package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure GroupStore implements the interface.
var _ driven.GroupStore = (*GroupStore)(nil)

// GroupStore is an in-memory implementation of driven.GroupStore.
// It starts with the default group.
type GroupStore struct {
	mu     sync.RWMutex
	groups []domain.Group
}

// NewGroupStore creates a store holding only the default group.
func NewGroupStore() *GroupStore {
	return &GroupStore{groups: []domain.Group{{Name: domain.DefaultGroupName}}}
}

func (s *GroupStore) indexOf(name string) int {
	return slices.IndexFunc(s.groups, func(g domain.Group) bool { return g.Name == name })
}

func copyGroup(g domain.Group) domain.Group {
	g.DocIDs = slices.Clone(g.DocIDs)
	return g
}

// List returns all groups in creation order.
func (s *GroupStore) List(_ context.Context) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = copyGroup(g)
	}
	return out, nil
}

// Get returns a group by name.
func (s *GroupStore) Get(_ context.Context, name string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(name)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	g := copyGroup(s.groups[i])
	return &g, nil
}

// Create adds a group.
func (s *GroupStore) Create(_ context.Context, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(name) >= 0 {
		return domain.ErrAlreadyExists
	}
	s.groups = append(s.groups, domain.Group{Name: name, Description: description})
	return nil
}

// Delete removes a group and returns its references.
func (s *GroupStore) Delete(_ context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	ids := s.groups[i].DocIDs
	s.groups = slices.Delete(s.groups, i, i+1)
	return ids, nil
}

// AddDocument links a document, creating the group if needed.
func (s *GroupStore) AddDocument(_ context.Context, group, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(group)
	if i < 0 {
		s.groups = append(s.groups, domain.Group{Name: group})
		i = len(s.groups) - 1
	}
	if !slices.Contains(s.groups[i].DocIDs, docID) {
		s.groups[i].DocIDs = append(s.groups[i].DocIDs, docID)
	}
	return nil
}

// RemoveDocument unlinks a document from every group.
func (s *GroupStore) RemoveDocument(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		s.groups[i].DocIDs = slices.DeleteFunc(s.groups[i].DocIDs, func(id string) bool { return id == docID })
	}
	return nil
}

// ClearDocuments empties every group.
func (s *GroupStore) ClearDocuments(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		s.groups[i].DocIDs = nil
	}
	return nil
}
