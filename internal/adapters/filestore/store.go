// Package filestore persists the session record as a single JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Store writes the three session entries to one file.
// Saves go through a temp file and rename so readers never see a partial record.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by path. The file is created on first Save.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}
	return &Store{path: filepath.Clean(path)}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Load(_ context.Context) (ports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ports.Record{}, nil
		}
		return ports.Record{}, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return ports.Record{}, nil
	}

	var rec ports.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return ports.Record{}, apperrors.DataCorruption("session file unreadable", err)
	}
	return rec, nil
}

func (s *Store) Save(_ context.Context, rec ports.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return errors.Join(cause, fmt.Errorf("remove temp file: %w", rmErr))
		}
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("write temp session file: %w", err))
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("chmod temp session file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("sync temp session file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("close temp session file: %w", err))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return cleanup(fmt.Errorf("replace session file: %w", err))
	}
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
