// Package credstore implements the durable credential record: a single JSON
// file mapping username to secret. The file is the sole source of truth for
// identity existence.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yuna-ai/yuna-server/pkg/errors"
)

// Store provides access to the credential record. Every mutation rewrites
// the whole record through a temp-file-and-rename swap, so a reader never
// observes a truncated file. Mutations are serialized by the store's lock;
// reads only need the shared side.
type Store struct {
	path string
	mu   sync.RWMutex
}

// New creates a store backed by the record at path. The record is created
// lazily on first mutation; a missing file reads as an empty record.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the credential record
func (s *Store) Path() string {
	return s.path
}

// ReadAll returns the full username-to-secret mapping. A missing record is
// the first-run case and yields an empty mapping, not an error.
func (s *Store) ReadAll() (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readSnapshot()
}

// Get returns the secret stored for username
func (s *Store) Get(username string) (string, error) {
	users, err := s.ReadAll()
	if err != nil {
		return "", err
	}

	secret, ok := users[username]
	if !ok {
		return "", errors.NewNotFoundError("user").WithDetail("username", username)
	}
	return secret, nil
}

// Exists reports whether username is present in the record
func (s *Store) Exists(username string) (bool, error) {
	users, err := s.ReadAll()
	if err != nil {
		return false, err
	}
	_, ok := users[username]
	return ok, nil
}

// PutAll atomically replaces the entire record
func (s *Store) PutAll(users map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSnapshot(users)
}

// Update runs fn against the current record under the store's exclusive lock
// and persists the result. This is the read-modify-write discipline every
// mutating caller must go through; without it, concurrent full-record
// rewrites would lose each other's entries.
func (s *Store) Update(fn func(users map[string]string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readSnapshot()
	if err != nil {
		return err
	}

	if err := fn(users); err != nil {
		return err
	}

	return s.writeSnapshot(users)
}

// readSnapshot loads the record without locking; callers hold s.mu
func (s *Store) readSnapshot() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, errors.NewIOError("failed to read credential record", err)
	}

	users := make(map[string]string)
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, errors.NewIOError("credential record is corrupted", err)
	}
	return users, nil
}

// writeSnapshot persists the record via temp file and rename; callers hold
// s.mu exclusively
func (s *Store) writeSnapshot(users map[string]string) error {
	data, err := json.Marshal(users)
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to encode credential record", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIOError("failed to create credential directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.NewIOError("failed to create temp credential file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewIOError("failed to write credential record", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewIOError("failed to sync credential record", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewIOError("failed to close temp credential file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewIOError(fmt.Sprintf("failed to swap credential record into %s", s.path), err)
	}

	return nil
}
