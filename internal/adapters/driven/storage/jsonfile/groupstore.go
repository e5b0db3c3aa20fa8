// Package jsonfile provides a JSON-file implementation of driven.GroupStore.
//
// Groups and their document back-references are kept in a single
// groups.json file. Every change rewrites the whole file through a temporary
// file and a rename, so readers never see a partial document. Concurrent
// writers from different processes follow last-write-wins.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// FileName is the name of the group file inside the data directory.
const FileName = "groups.json"

// Ensure GroupStore implements the interface.
var _ driven.GroupStore = (*GroupStore)(nil)

// fileGroup is one entry of the groups list.
type fileGroup struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// fileLayout is the on-disk document.
type fileLayout struct {
	Groups         []fileGroup         `json:"groups"`
	GroupDocuments map[string][]string `json:"group_documents"`
}

// GroupStore persists groups in a JSON file.
type GroupStore struct {
	mu       sync.RWMutex
	filePath string
	data     fileLayout
}

// NewGroupStore opens the group file in dataDir, creating it with the
// default group when it does not exist.
func NewGroupStore(dataDir string) (*GroupStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".bidscribe", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &GroupStore{filePath: filepath.Join(dataDir, FileName)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the group file path.
func (s *GroupStore) Path() string {
	return s.filePath
}

// Load reads the group file, replacing the in-memory state.
func (s *GroupStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *GroupStore) load() error {
	raw, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = defaultLayout()
		return s.save()
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.filePath, err)
	}

	var loaded fileLayout
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	if loaded.GroupDocuments == nil {
		loaded.GroupDocuments = make(map[string][]string)
	}
	s.data = loaded
	return nil
}

func defaultLayout() fileLayout {
	return fileLayout{
		Groups:         []fileGroup{{Name: domain.DefaultGroupName, Description: "Documents without a group"}},
		GroupDocuments: map[string][]string{domain.DefaultGroupName: {}},
	}
}

// save writes the file atomically (caller must hold lock).
func (s *GroupStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding groups: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".groups-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing groups: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing groups: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("replacing %s: %w", s.filePath, err)
	}
	return nil
}

func (s *GroupStore) indexOf(name string) int {
	return slices.IndexFunc(s.data.Groups, func(g fileGroup) bool { return g.Name == name })
}

func (s *GroupStore) group(i int) domain.Group {
	g := s.data.Groups[i]
	return domain.Group{
		Name:        g.Name,
		Description: g.Description,
		DocIDs:      slices.Clone(s.data.GroupDocuments[g.Name]),
	}
}

// List returns all groups in file order.
func (s *GroupStore) List(_ context.Context) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Group, len(s.data.Groups))
	for i := range s.data.Groups {
		out[i] = s.group(i)
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
	g := s.group(i)
	return &g, nil
}

// Create adds an empty group.
func (s *GroupStore) Create(_ context.Context, name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(name) >= 0 {
		return domain.ErrAlreadyExists
	}
	s.data.Groups = append(s.data.Groups, fileGroup{Name: name, Description: description})
	s.data.GroupDocuments[name] = []string{}
	return s.save()
}

// Delete removes a group and returns its references.
func (s *GroupStore) Delete(_ context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	ids := s.data.GroupDocuments[name]
	s.data.Groups = slices.Delete(s.data.Groups, i, i+1)
	delete(s.data.GroupDocuments, name)
	if err := s.save(); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddDocument links a document, creating the group if needed.
func (s *GroupStore) AddDocument(_ context.Context, group, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(group) < 0 {
		s.data.Groups = append(s.data.Groups, fileGroup{Name: group})
	}
	ids := s.data.GroupDocuments[group]
	if slices.Contains(ids, docID) {
		return nil
	}
	s.data.GroupDocuments[group] = append(ids, docID)
	return s.save()
}

// RemoveDocument unlinks a document from every group.
func (s *GroupStore) RemoveDocument(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for name, ids := range s.data.GroupDocuments {
		kept := slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == docID })
		if len(kept) != len(ids) {
			s.data.GroupDocuments[name] = kept
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save()
}

// ClearDocuments empties every group.
func (s *GroupStore) ClearDocuments(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.data.Groups {
		s.data.GroupDocuments[g.Name] = []string{}
	}
	return s.save()
}

// Watch reloads the file whenever another process replaces or edits it,
// until ctx is cancelled. Reload errors are logged and the previous state
// is kept.
func (s *GroupStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// The directory is watched because atomic replacement swaps the inode.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.filePath), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if s.handleEvent(event) {
					if err := s.Load(); err != nil {
						logger.Warn("Group file reload failed: %v", err)
					} else {
						logger.Debug("Reloaded %s", s.filePath)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Group file watcher: %v", err)
			}
		}
	}()
	return nil
}

// handleEvent reports whether a filesystem event should trigger a reload.
func (s *GroupStore) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.filePath) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
