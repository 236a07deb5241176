package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SnapshotStore persists the catalog as a JSON array on disk. The file's
// modification time is the freshness signal, so an operator can force a
// refresh by deleting or touching the file.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store writing to the given path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the persisted snapshot. A missing file returns ok=false.
func (s *SnapshotStore) Load() (Catalog, bool, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Catalog{}, false, nil
	}
	if err != nil {
		return Catalog{}, false, fmt.Errorf("catalog: stat snapshot: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Catalog{}, false, fmt.Errorf("catalog: read snapshot: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Catalog{}, false, fmt.Errorf("catalog: decode snapshot: %w", err)
	}

	return Catalog{Entries: entries, FetchedAt: info.ModTime()}, true, nil
}

// Save atomically replaces the snapshot via a temp-file rename.
func (s *SnapshotStore) Save(entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("catalog: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("catalog: snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".services_cache-*")
	if err != nil {
		return fmt.Errorf("catalog: temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("catalog: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("catalog: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("catalog: replace snapshot: %w", err)
	}
	return nil
}

// Age reports how old the snapshot is, or false when none exists.
func (s *SnapshotStore) Age(now time.Time) (time.Duration, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, false
	}
	return now.Sub(info.ModTime()), true
}
