// handlers_documents.go - Document details and content handlers
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/file-upload-app/backend/internal/filecache"
	"github.com/file-upload-app/backend/internal/metrics"
	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/storage"
	"github.com/file-upload-app/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// DocumentHandlerImpl implements the DocumentHandler interface
type DocumentHandlerImpl struct {
	store         storage.Store
	sessions      SessionManager
	parallelSaves int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(deps *Dependencies) DocumentHandler {
	return &DocumentHandlerImpl{
		store:         deps.Store,
		sessions:      deps.Sessions,
		parallelSaves: deps.ParallelSaves,
		metrics:       deps.Metrics,
		logger:        deps.logger(),
	}
}

// contentPending is reported for documents that were never viewed.
const contentPending = "pending"

type documentView struct {
	Name           string        `json:"name"`
	DetailsVisible bool          `json:"detailsVisible"`
	Details        *detailsPanel `json:"details,omitempty"`
	Message        string        `json:"message,omitempty"`
	ContentStatus  string        `json:"contentStatus"`
	Kind           string        `json:"kind"`
}

type detailsPanel struct {
	FileName string `json:"FileName"`
	FileType string `json:"FileType"`
	FileSize string `json:"FileSize"`
}

type detailsResponse struct {
	Name    string        `json:"name"`
	Visible bool          `json:"visible"`
	Details *detailsPanel `json:"details,omitempty"`
	Message string        `json:"message,omitempty"`
}

type viewResponse struct {
	Name      string `json:"name"`
	Content   string `json:"content,omitempty"`
	FromCache bool   `json:"fromCache"`
	Error     string `json:"error,omitempty"`
}

// HandleUploadDocuments ingests one or more documents (multipart field "files")
func (h *DocumentHandlerImpl) HandleUploadDocuments(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	files := form.File["files"]
	if err := upload.Validate(upload.WidgetDocuments, files); err != nil {
		return err
	}

	var uploads []models.UploadedFile
	if fresh := untakenFiles(files, sess.HasDocument); len(fresh) > 0 {
		uploads, err = upload.SaveBatch(c.Request().Context(), h.store, sess.ID, upload.WidgetDocuments, fresh, h.parallelSaves)
		if err != nil {
			return err
		}
	}

	added, ignored := sess.IngestDocuments(uploads)
	for _, u := range ignored {
		releaseBlobs(h.store, h.logger, u.BlobID)
	}
	h.metrics.ObserveUpload(string(upload.WidgetDocuments), added)
	h.logger.Debug("documents ingested", "session", sess.ID, "received", len(files), "added", added)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"added":     added,
		"documents": documentViews(sess.Documents()),
	})
}

// HandleListDocuments returns every document in first-upload order
func (h *DocumentHandlerImpl) HandleListDocuments(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, documentViews(sess.Documents()))
}

// HandleToggleDetails flips the visibility of a document's details panel
func (h *DocumentHandlerImpl) HandleToggleDetails(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	name := nameParam(c)
	visible, err := sess.ToggleDetails(name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":           name,
		"detailsVisible": visible,
	})
}

// HandleGetDetails returns the details panel, or the hidden message
func (h *DocumentHandlerImpl) HandleGetDetails(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	name := nameParam(c)
	rec, ok := sess.Document(name)
	if !ok {
		return fmt.Errorf("%w: %s", filecache.ErrFileNotFound, name)
	}

	resp := detailsResponse{Name: name, Visible: rec.DetailsVisible}
	if rec.DetailsVisible {
		resp.Details = newDetailsPanel(rec.Metadata)
	} else {
		resp.Message = hiddenMessage(name)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleViewContent extracts the document text on first view and serves the
// memoized result afterwards. Extraction failures are reported in the body.
func (h *DocumentHandlerImpl) HandleViewContent(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	name := nameParam(c)
	content, fresh, err := sess.ViewContent(name, h.store.Open)
	if err != nil {
		return err
	}
	rec, _ := sess.Document(name)
	kind := models.KindFromDeclaredType(rec.File.DeclaredType)
	h.metrics.ObserveContent(kind.String(), string(content.Status), fresh)

	resp := viewResponse{Name: name, FromCache: !fresh}
	switch content.Status {
	case models.ContentExtracted:
		resp.Content = content.Text
	case models.ContentUnsupported:
		resp.Error = fmt.Sprintf("Unsupported file type: %s", rec.File.DeclaredType)
	default:
		resp.Error = fmt.Sprintf("Error reading file %s: %s", name, content.Reason)
	}
	if fresh && !content.OK() {
		h.logger.Info("document extraction failed", "session", sess.ID, "name", name, "kind", kind.String(), "reason", content.Reason)
	}
	return c.JSON(http.StatusOK, resp)
}

func documentViews(records []filecache.Record) []documentView {
	views := make([]documentView, 0, len(records))
	for _, rec := range records {
		v := documentView{
			Name:           rec.File.Name,
			DetailsVisible: rec.DetailsVisible,
			ContentStatus:  contentPending,
			Kind:           models.KindFromDeclaredType(rec.File.DeclaredType).String(),
		}
		if rec.DetailsVisible {
			v.Details = newDetailsPanel(rec.Metadata)
		} else {
			v.Message = hiddenMessage(rec.File.Name)
		}
		if rec.Content != nil {
			v.ContentStatus = string(rec.Content.Status)
		}
		views = append(views, v)
	}
	return views
}

func newDetailsPanel(m models.FileMetadata) *detailsPanel {
	return &detailsPanel{
		FileName: m.FileName,
		FileType: m.FileType,
		FileSize: m.FileSize(),
	}
}

func hiddenMessage(name string) string {
	return fmt.Sprintf("File details for %s are hidden. Click the button to show them.", name)
}
