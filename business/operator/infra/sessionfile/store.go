// Package sessionfile persists operator state as a JSON file.
package sessionfile

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fd1az/depositwatch/business/operator/app"
	"github.com/fd1az/depositwatch/internal/apperror"
)

// Store reads and writes snapshots to a single JSON file. Writes go through
// a temp file and rename so a crash mid-write never corrupts the state.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load implements app.SessionStore.
func (s *Store) Load() (app.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return app.Snapshot{}, false, nil
		}
		return app.Snapshot{}, false, apperror.New(apperror.CodeSessionStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("path: "+s.path))
	}

	var snap app.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return app.Snapshot{}, false, apperror.New(apperror.CodeSessionStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("path: "+s.path))
	}

	return snap, true, nil
}

// Save implements app.SessionStore.
func (s *Store) Save(snap app.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return apperror.New(apperror.CodeSessionStoreFailed, apperror.WithCause(err))
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return apperror.New(apperror.CodeSessionStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("dir: "+dir))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperror.New(apperror.CodeSessionStoreFailed, apperror.WithCause(err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperror.New(apperror.CodeSessionStoreFailed, apperror.WithCause(err))
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperror.New(apperror.CodeSessionStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("path: "+s.path))
	}

	return nil
}
