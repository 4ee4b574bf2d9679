package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/google/uuid"
)

type memoryBlob struct {
	info *models.FileInfo
	data []byte
}

// MemoryStore implements Store entirely in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*memoryBlob
	order []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]*memoryBlob),
	}
}

// Save reads r fully and keeps the bytes under a new id.
func (s *MemoryStore) Save(sessionID, name, contentType string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	info := &models.FileInfo{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[info.ID] = &memoryBlob{info: info, data: data}
	s.order = append(s.order, info.ID)

	return info, nil
}

// Get retrieves blob metadata by id.
func (s *MemoryStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	return blob.info, nil
}

// Open returns a reader over the blob's bytes.
func (s *MemoryStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	return io.NopCloser(bytes.NewReader(blob.data)), nil
}

// List returns the blobs of a session, oldest first.
func (s *MemoryStore) List(sessionID string) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.FileInfo
	for _, id := range s.order {
		if blob := s.blobs[id]; blob.info.SessionID == sessionID {
			list = append(list, blob.info)
		}
	}
	return list, nil
}

// Delete drops a single blob.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	delete(s.blobs, id)
	s.order = removeSession(s.order, func(other string) bool { return other == id })
	return nil
}

// DeleteSession drops every blob owned by the session.
func (s *MemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = removeSession(s.order, func(id string) bool {
		return s.blobs[id].info.SessionID == sessionID
	})
	for id, blob := range s.blobs {
		if blob.info.SessionID == sessionID {
			delete(s.blobs, id)
		}
	}
	return nil
}

// removeSession filters ids in place, keeping the upload order. Ids for
// which owned returns true are dropped.
func removeSession(order []string, owned func(id string) bool) []string {
	kept := order[:0]
	for _, id := range order {
		if !owned(id) {
			kept = append(kept, id)
		}
	}
	return kept
}
