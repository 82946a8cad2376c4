package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Store implements simplecms.BlobStore in memory for tests and development.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailDeletes makes every Delete return an error, for exercising the
	// best-effort release policy in tests.
	FailDeletes bool

	deletes []string
}

// New creates a new in-memory blob store
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Upload(ctx context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.blobs[key]
	if !exists {
		return nil, &simplecms.StorageError{Key: key, Op: "download", Err: simplecms.ErrRecordNotFound}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes = append(s.deletes, key)
	if s.FailDeletes {
		return &simplecms.StorageError{Key: key, Op: "delete", Err: io.ErrUnexpectedEOF}
	}
	delete(s.blobs, key)
	return nil
}

// Exists reports whether a blob is currently stored under the key.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.blobs[key]
	return exists
}

// Deletes returns every key Delete has been called with, failures included.
func (s *Store) Deletes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.deletes...)
}
