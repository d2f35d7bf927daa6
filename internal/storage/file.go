package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileBackend persists profile namespaces to a YAML file.
// Every write rewrites the file through a temp file and rename.
type FileBackend struct {
	path string

	mu   sync.Mutex
	data map[string]map[string]string
}

// OpenFileBackend loads path, starting empty when it does not exist yet
func OpenFileBackend(path string) (*FileBackend, error) {
	b := &FileBackend{path: path, data: make(map[string]map[string]string)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &b.data); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if b.data == nil {
		b.data = make(map[string]map[string]string)
	}
	return b, nil
}

// For returns the store of profileID
func (b *FileBackend) For(profileID string) Store {
	return &fileStore{backend: b, profile: profileID}
}

// Clear drops a profile namespace
func (b *FileBackend) Clear(_ context.Context, profileID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, profileID)
	return b.flush()
}

// Ping checks the state directory is reachable
func (b *FileBackend) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(b.path))
	return err
}

// Close is a no-op; writes are flushed eagerly
func (b *FileBackend) Close() error { return nil }

// flush must be called with mu held
func (b *FileBackend) flush() error {
	raw, err := yaml.Marshal(b.data)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

type fileStore struct {
	backend *FileBackend
	profile string
}

func (s *fileStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	v, ok := s.backend.data[s.profile][key]
	return v, ok, nil
}

func (s *fileStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	ns, ok := s.backend.data[s.profile]
	if !ok {
		ns = make(map[string]string)
		s.backend.data[s.profile] = ns
	}
	ns[key] = value
	return s.backend.flush()
}
