// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/storage"
)

// MockStorage implements storage.Store for testing. It counts how often each
// blob is opened and can be told to fail saves or opens.
type MockStorage struct {
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	opens    map[string]int
	mu       sync.RWMutex
	seq      int

	// SaveErr, when set, is returned by every Save call.
	SaveErr error
	// OpenErr, when set, is returned by every Open call.
	OpenErr error
}

var _ storage.Store = (*MockStorage)(nil)

// NewMockStorage creates a new empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
		opens:    make(map[string]int),
	}
}

func (m *MockStorage) Save(sessionID, name, contentType string, r io.Reader) (*models.FileInfo, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.AddFile(sessionID, name, contentType, data), nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, id)
	}
	return file, nil
}

func (m *MockStorage) Open(id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	data, ok := m.fileData[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, id)
	}
	m.opens[id]++
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) List(sessionID string) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*models.FileInfo
	for _, f := range m.files {
		if f.SessionID == sessionID {
			list = append(list, f)
		}
	}
	return list, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrBlobNotFound, id)
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, f := range m.files {
		if f.SessionID == sessionID {
			delete(m.files, id)
			delete(m.fileData, id)
		}
	}
	return nil
}

// Helper methods for testing

// AddFile stores data directly and returns its metadata.
func (m *MockStorage) AddFile(sessionID, name, contentType string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	file := &models.FileInfo{
		ID:          fmt.Sprintf("blob-%d", m.seq),
		SessionID:   sessionID,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
	}
	m.files[file.ID] = file
	m.fileData[file.ID] = data
	return file
}

// OpenCount reports how many times a blob has been opened.
func (m *MockStorage) OpenCount(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opens[id]
}

// TotalOpens reports how many blob opens happened in total.
func (m *MockStorage) TotalOpens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, n := range m.opens {
		total += n
	}
	return total
}

// GetFileCount returns the number of stored blobs
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// ErrMockFailure is a generic injected failure.
var ErrMockFailure = errors.New("mock failure")
