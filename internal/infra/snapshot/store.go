// Package snapshot persists ledger state as a JSON file. Writes go to a
// temporary file that is then renamed over the target, so a crash mid-write
// leaves the previous snapshot intact.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/port"
)

const formatVersion = 1

// Meta describes a snapshot file.
type Meta struct {
	Version   int       `json:"version"`
	Storage   string    `json:"storage"`
	Timestamp time.Time `json:"timestamp"`
}

type file struct {
	Meta   Meta                  `json:"meta"`
	Ledger domain.LedgerSnapshot `json:"ledger"`
}

// FileStore is a port.SnapshotStore backed by a single JSON file.
type FileStore struct {
	path string
	now  func() time.Time
}

var _ port.SnapshotStore = (*FileStore)(nil)

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (s *FileStore) Load() (domain.LedgerSnapshot, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.LedgerSnapshot{}, nil
	}
	if err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var doc file
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("decoding snapshot %s: %w", s.path, err)
	}
	if doc.Meta.Version > formatVersion {
		return domain.LedgerSnapshot{}, fmt.Errorf("snapshot version %d not supported", doc.Meta.Version)
	}
	return doc.Ledger, nil
}

// Save writes snap atomically.
func (s *FileStore) Save(snap domain.LedgerSnapshot) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot dir: %w", err)
		}
	}

	doc := file{
		Meta: Meta{
			Version:   formatVersion,
			Storage:   "json_snapshot",
			Timestamp: s.now().UTC(),
		},
		Ledger: snap,
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}

	return os.Rename(tmp, s.path)
}
