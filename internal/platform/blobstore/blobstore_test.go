package blobstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return map[string]Store{
		"memory": NewInMemoryStore(),
		"fs":     fs,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte("%PDF-1.4 test report")
			key, size, err := store.Put(context.Background(), "report.pdf", "application/pdf", bytes.NewReader(content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if size != int64(len(content)) {
				t.Errorf("size = %d, want %d", size, len(content))
			}
			if filepath.Ext(key) != ".pdf" {
				t.Errorf("key %q does not keep the file extension", key)
			}

			got, err := store.Get(context.Background(), key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Error("content does not round trip")
			}

			if err := store.Delete(context.Background(), key); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := store.Get(context.Background(), key); !errors.Is(err, ErrBlobNotFound) {
				t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStore_RejectsInvalidUploads(t *testing.T) {
	store := NewInMemoryStore()

	_, _, err := store.Put(context.Background(), "", "application/pdf", strings.NewReader("x"))
	if !errors.Is(err, ErrMissingFileName) {
		t.Errorf("expected ErrMissingFileName, got %v", err)
	}

	_, _, err = store.Put(context.Background(), "report.exe", "application/octet-stream", strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}

	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	_, _, err = store.Put(context.Background(), "report.pdf", "application/pdf", big)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestFSStore_RejectsPathTraversal(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fs.Get(context.Background(), "../etc/passwd"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
	if err := fs.Delete(context.Background(), "../x"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}
