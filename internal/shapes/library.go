package shapes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"screenvec/internal/bitmap"
	apperrors "screenvec/internal/errors"
)

// Library is the persistent hash -> occurrence-count table for one
// device. Counts only ever grow; reprocessing an item increments its
// shapes again rather than rebuilding the table.
type Library struct {
	mu   sync.Mutex
	path string
}

// NewLibrary opens the shape table stored at path. The file is created
// lazily on first update.
func NewLibrary(path string) *Library {
	return &Library{path: path}
}

// Load reads the current table. A missing file is an empty table.
func (l *Library) Load() (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *Library) load() (map[string]int, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read shape table", err)
	}
	table := map[string]int{}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, apperrors.NewInternalError("shape table is corrupt", err)
	}
	return table, nil
}

// UpdateFromBitmap extracts the components of a bitmap, increments their
// counts and rewrites the table. Returns the updated table.
func (l *Library) UpdateFromBitmap(bm *bitmap.Bitmap) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	table, err := l.load()
	if err != nil {
		return nil, err
	}
	for _, comp := range Extract(bm) {
		table[Hash(comp.Bitmap)]++
	}
	if err := l.save(table); err != nil {
		return nil, err
	}
	return table, nil
}

func (l *Library) save(table map[string]int) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("failed to encode shape table", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return apperrors.NewInternalError("failed to create state directory", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.NewInternalError("failed to write shape table", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return apperrors.NewInternalError("failed to replace shape table", err)
	}
	return nil
}
