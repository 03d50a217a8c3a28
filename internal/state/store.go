package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "screenvec/internal/errors"
)

// Store reads and writes the state document for one device. Every
// mutation rewrites the whole document atomically (temp file + rename)
// under an internal mutex. Callers always receive copies.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens the state document stored at path. The file is created
// lazily on first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns a copy of the full document. A missing file is an empty
// document at the current version.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns a copy of one item's record.
func (s *Store) Get(id string) (ItemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return ItemState{}, err
	}
	item, ok := doc.Items[id]
	if !ok {
		return ItemState{}, apperrors.NewNotFoundError("no state for item "+id, nil)
	}
	return item.clone(), nil
}

// Set replaces one item's record and refreshes its timestamp.
func (s *Store) Set(id string, item ItemState) (ItemState, error) {
	return s.mutate(id, func(cur *ItemState, _ bool) {
		*cur = item.clone()
	})
}

// Apply merges a partial update into an existing record. Missing items
// are a not-found error.
func (s *Store) Apply(id string, patch Patch) (ItemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return ItemState{}, err
	}
	item, ok := doc.Items[id]
	if !ok {
		return ItemState{}, apperrors.NewNotFoundError("no state for item "+id, nil)
	}
	item = item.clone()
	patch.apply(&item)
	item.UpdatedAt = time.Now().UTC()
	doc.Items[id] = item
	if err := s.save(doc); err != nil {
		return ItemState{}, err
	}
	return item.clone(), nil
}

// Upsert fetches the current record (or a fresh one built by makeNew
// when absent), lets fn rewrite it, and persists the result.
func (s *Store) Upsert(id string, makeNew func() ItemState, fn func(*ItemState)) (ItemState, error) {
	return s.mutate(id, func(cur *ItemState, exists bool) {
		if !exists {
			*cur = makeNew()
		}
		fn(cur)
	})
}

func (s *Store) mutate(id string, fn func(cur *ItemState, exists bool)) (ItemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return ItemState{}, err
	}
	item, exists := doc.Items[id]
	item = item.clone()
	fn(&item, exists)
	item.UpdatedAt = time.Now().UTC()
	doc.Items[id] = item
	if err := s.save(doc); err != nil {
		return ItemState{}, err
	}
	return item.clone(), nil
}

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Document{Version: DocumentVersion, Items: map[string]ItemState{}}, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read state document", err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, apperrors.NewInternalError("state document is corrupt", err)
	}
	if doc.Items == nil {
		doc.Items = map[string]ItemState{}
	}
	if doc.Version == "" {
		doc.Version = DocumentVersion
	}
	return doc, nil
}

func (s *Store) save(doc *Document) error {
	doc.Version = DocumentVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("failed to encode state document", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperrors.NewInternalError("failed to create state directory", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.NewInternalError("failed to write state document", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.NewInternalError("failed to replace state document", err)
	}
	return nil
}
