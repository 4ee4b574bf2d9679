// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionHandler handles the lifecycle of browser sessions
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
}

// ImageHandler handles the image gallery
type ImageHandler interface {
	HandleUploadImages(c echo.Context) error
	HandleListImages(c echo.Context) error
	HandleGetImage(c echo.Context) error
}

// DatasetHandler handles the CSV dataset view
type DatasetHandler interface {
	HandleUploadDataset(c echo.Context) error
	HandleGetDataset(c echo.Context) error
	HandleGetDatasetMsgpack(c echo.Context) error
}

// DocumentHandler handles document upload, details and content viewing
type DocumentHandler interface {
	HandleUploadDocuments(c echo.Context) error
	HandleListDocuments(c echo.Context) error
	HandleToggleDetails(c echo.Context) error
	HandleGetDetails(c echo.Context) error
	HandleViewContent(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Info(id string) (models.SessionInfo, error)
	Delete(id string) error
	Count() int
}

// DatasetLoader turns an uploaded CSV into a table
type DatasetLoader interface {
	Load(ctx context.Context, name string, r io.Reader) (*models.Dataset, error)
}

var _ SessionManager = (*session.Manager)(nil)
