package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/google/uuid"
)

// LocalStore implements Store by spooling blobs to the local filesystem, one
// directory per session. Nothing in the spool directory outlives the process
// that wrote it.
type LocalStore struct {
	mu       sync.RWMutex
	spoolDir string
	files    map[string]*models.FileInfo
	order    []string
}

// NewLocalStore creates a LocalStore and clears blobs left by earlier runs.
func NewLocalStore(spoolDir string) (*LocalStore, error) {
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	s := &LocalStore{
		spoolDir: spoolDir,
		files:    make(map[string]*models.FileInfo),
	}
	if err := s.clearStale(); err != nil {
		return nil, err
	}
	return s, nil
}

// clearStale removes session directories from previous runs. Only entries
// named like session ids are touched.
func (s *LocalStore) clearStale() error {
	entries, err := os.ReadDir(s.spoolDir)
	if err != nil {
		return fmt.Errorf("reading spool directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.spoolDir, entry.Name())); err != nil {
			return fmt.Errorf("removing stale session %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Save writes r to the session's spool directory.
func (s *LocalStore) Save(sessionID, name, contentType string, r io.Reader) (*models.FileInfo, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	dir := filepath.Join(s.spoolDir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:          id,
		SessionID:   sessionID,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info
	s.order = append(s.order, id)

	return info, nil
}

// Get retrieves blob metadata by id.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	return info, nil
}

// Open opens the spooled file for reading.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	info, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}

	f, err := os.Open(filepath.Join(s.spoolDir, info.SessionID, id))
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// List returns the blobs of a session, oldest first.
func (s *LocalStore) List(sessionID string) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.FileInfo
	for _, id := range s.order {
		if info := s.files[id]; info.SessionID == sessionID {
			list = append(list, info)
		}
	}
	return list, nil
}

// Delete removes a single spooled file.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	if err := os.Remove(filepath.Join(s.spoolDir, info.SessionID, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	delete(s.files, id)
	s.order = removeSession(s.order, func(other string) bool { return other == id })
	return nil
}

// DeleteSession removes the session's spool directory.
func (s *LocalStore) DeleteSession(sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.spoolDir, sessionID)); err != nil {
		return fmt.Errorf("deleting session files: %w", err)
	}
	s.order = removeSession(s.order, func(id string) bool {
		return s.files[id].SessionID == sessionID
	})
	for id, info := range s.files {
		if info.SessionID == sessionID {
			delete(s.files, id)
		}
	}
	return nil
}
