package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps every profile namespace in process memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

// For returns the store of profileID
func (b *MemoryBackend) For(profileID string) Store {
	return &memoryStore{backend: b, profile: profileID}
}

// Clear drops a profile namespace
func (b *MemoryBackend) Clear(_ context.Context, profileID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, profileID)
	return nil
}

// Snapshot returns a copy of a profile namespace
func (b *MemoryBackend) Snapshot(profileID string) map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.data[profileID]))
	for k, v := range b.data[profileID] {
		out[k] = v
	}
	return out
}

// Ping always succeeds
func (b *MemoryBackend) Ping(context.Context) error { return nil }

// Close is a no-op
func (b *MemoryBackend) Close() error { return nil }

type memoryStore struct {
	backend *MemoryBackend
	profile string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	v, ok := s.backend.data[s.profile][key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
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
	return nil
}
