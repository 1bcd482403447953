// Package blobstore stores uploaded lab report files. It defines the Store
// interface, a filesystem implementation for production use and an in-memory
// implementation for tests.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed upload size in bytes (20 MB).
const MaxFileSize = 20 * 1024 * 1024

// AllowedContentTypes lists the report file MIME types accepted for upload.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
}

// Store is the contract for report file storage backends. Put assigns and
// returns the storage key.
type Store interface {
	Put(ctx context.Context, fileName, contentType string, content io.Reader) (key string, size int64, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// validate enforces the shared upload constraints and reads the content.
func validate(fileName, contentType string, content io.Reader) ([]byte, error) {
	if fileName == "" {
		return nil, ErrMissingFileName
	}
	if !AllowedContentTypes[contentType] {
		return nil, ErrInvalidContentType
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// newKey derives a storage key that keeps the original extension so the file
// type survives a round trip through the store.
func newKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return uuid.New().String() + ext
}

// FSStore keeps report files under a single directory on local disk.
type FSStore struct {
	dir string
}

// NewFSStore creates the storage directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, fileName, contentType string, content io.Reader) (string, int64, error) {
	data, err := validate(fileName, contentType, content)
	if err != nil {
		return "", 0, err
	}
	key := newKey(fileName)
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", 0, fmt.Errorf("writing blob: %w", err)
	}
	return key, int64(len(data)), nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	// Keys are generated UUIDs; reject anything that looks like a path.
	if key != filepath.Base(key) {
		return nil, ErrBlobNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	if key != filepath.Base(key) {
		return ErrBlobNotFound
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrBlobNotFound
	}
	return err
}

// InMemoryStore is a thread-safe Store for tests and development.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, fileName, contentType string, content io.Reader) (string, int64, error) {
	data, err := validate(fileName, contentType, content)
	if err != nil {
		return "", 0, err
	}
	key := newKey(fileName)
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return key, int64(len(data)), nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return bytes.Clone(data), nil
}

// Keys returns the stored blob keys.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}
