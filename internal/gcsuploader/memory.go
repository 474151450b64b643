package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dvloznov/budgetiq/internal/gcs"
)

// MockBaseURL prefixes URLs handed out by MemoryStore.
const MockBaseURL = "https://mock-storage.com/"

// Re-export interface from shared package
type FileStore = gcs.FileStore

// MemoryStore keeps files in memory and hands out mock-storage URLs.
// It is used when no bucket is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// Put stores the content and returns MockBaseURL + objectName.
func (m *MemoryStore) Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("Put: %w", err)
	}

	url := MockBaseURL + strings.TrimPrefix(objectName, "/")
	m.mu.Lock()
	m.files[url] = buf.Bytes()
	m.mu.Unlock()
	return url, nil
}

// Get returns the content stored under url.
func (m *MemoryStore) Get(ctx context.Context, url string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[url]
	if !ok {
		return nil, fmt.Errorf("Get: no file at %s", url)
	}
	return data, nil
}

var _ FileStore = (*MemoryStore)(nil)
