// Package storage holds the bytes of uploaded files for the lifetime of a
// session.
package storage

import (
	"errors"
	"io"

	"github.com/file-upload-app/backend/internal/models"
)

// ErrBlobNotFound is returned for unknown blob ids.
var ErrBlobNotFound = errors.New("blob not found")

// Store defines the interface for session-scoped blob storage.
type Store interface {
	Save(sessionID, name, contentType string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	Open(id string) (io.ReadCloser, error)
	List(sessionID string) ([]*models.FileInfo, error)
	Delete(id string) error
	DeleteSession(sessionID string) error
}
