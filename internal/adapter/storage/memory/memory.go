// Package memory provides an in-process key-value storage with an optional
// byte quota, mirroring the capacity-bounded behaviour of browser storage.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

// Storage is a mutex-guarded string map. Used bytes are the sum of key and
// value lengths.
type Storage struct {
	mu       sync.RWMutex
	data     map[string]string
	used     int
	capacity int
}

type Option func(*Storage)

// WithCapacity limits the total bytes held by the storage. Zero or less disables the limit.
func WithCapacity(bytes int) Option {
	return func(s *Storage) {
		s.capacity = bytes
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		data: make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	const op = "adapter.storage.memory.Storage.Get"

	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", op, key, entity.ErrKeyNotFound)
	}

	return val, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	const op = "adapter.storage.memory.Storage.Set"

	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + len(key) + len(value)
	if old, ok := s.data[key]; ok {
		used -= len(key) + len(old)
	}

	if s.capacity > 0 && used > s.capacity {
		return fmt.Errorf("%s: %q needs %d of %d bytes: %w", op, key, used, s.capacity, entity.ErrQuotaExceeded)
	}

	s.data[key] = value
	s.used = used

	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.data, key)
	}

	return nil
}

// Used returns the number of bytes currently held.
func (s *Storage) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.used
}

func (s *Storage) Close() error {
	return nil
}
