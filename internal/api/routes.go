// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/file-upload-app/backend/internal/metrics"
	"github.com/file-upload-app/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         storage.Store
	Sessions      SessionManager
	DatasetLoader DatasetLoader
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	ParallelSaves int
	Version       string
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Session  SessionHandler
	Image    ImageHandler
	Dataset  DatasetHandler
	Document DocumentHandler
	metrics  *metrics.Metrics
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Sessions),
		Session:  NewSessionHandler(deps.Sessions),
		Image:    NewImageHandler(deps),
		Dataset:  NewDatasetHandler(deps),
		Document: NewDocumentHandler(deps),
		metrics:  deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Session lifecycle
	apiGroup.POST("/sessions", handlers.Session.HandleCreateSession)
	apiGroup.GET("/sessions/:sessionId", handlers.Session.HandleGetSession)
	apiGroup.DELETE("/sessions/:sessionId", handlers.Session.HandleDeleteSession)
	apiGroup.POST("/sessions/:sessionId/keepalive", handlers.Session.HandleKeepAlive)

	sessionGroup := apiGroup.Group("/sessions/:sessionId")

	// Home: image gallery
	sessionGroup.POST("/images/upload", handlers.Image.HandleUploadImages)
	sessionGroup.GET("/images", handlers.Image.HandleListImages)
	sessionGroup.GET("/images/:name", handlers.Image.HandleGetImage)

	// Dataset
	sessionGroup.POST("/dataset/upload", handlers.Dataset.HandleUploadDataset)
	sessionGroup.GET("/dataset", handlers.Dataset.HandleGetDataset)
	sessionGroup.GET("/dataset/msgpack", handlers.Dataset.HandleGetDatasetMsgpack)

	// Document files
	sessionGroup.POST("/documents/upload", handlers.Document.HandleUploadDocuments)
	sessionGroup.GET("/documents", handlers.Document.HandleListDocuments)
	sessionGroup.POST("/documents/:name/toggle", handlers.Document.HandleToggleDetails)
	sessionGroup.GET("/documents/:name/details", handlers.Document.HandleGetDetails)
	sessionGroup.POST("/documents/:name/view", handlers.Document.HandleViewContent)

	// Prometheus scrape endpoint
	if handlers.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.metrics.Handler()))
	}
}

// SetupMiddleware configures the error handler and the request metrics
func SetupMiddleware(e *echo.Echo, m *metrics.Metrics) {
	e.HTTPErrorHandler = ErrorHandler

	if m != nil {
		e.Use(m.Middleware())
	}
}
