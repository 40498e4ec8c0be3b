package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	bucketName string

	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{
		bucketName: bucket,
		objects:    make(map[string][]byte),
		types:      make(map[string]string),
	}
}

func (s *MemoryStorage) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	if size >= 0 && int64(len(b)) != size {
		return "", fmt.Errorf("storage: read %d bytes, expected %d", len(b), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	s.types[key] = contentType
	return fmt.Sprintf("mem://%s/%s", s.bucketName, key), nil
}

// Get returns a stored object and its content type.
func (s *MemoryStorage) Get(key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return b, s.types[key], nil
}
