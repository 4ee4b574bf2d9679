// handlers_images.go - Image gallery handlers
package api

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/file-upload-app/backend/internal/metrics"
	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/storage"
	"github.com/file-upload-app/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// ImageHandlerImpl implements the ImageHandler interface
type ImageHandlerImpl struct {
	store         storage.Store
	sessions      SessionManager
	parallelSaves int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewImageHandler creates a new image handler
func NewImageHandler(deps *Dependencies) ImageHandler {
	return &ImageHandlerImpl{
		store:         deps.Store,
		sessions:      deps.Sessions,
		parallelSaves: deps.ParallelSaves,
		metrics:       deps.Metrics,
		logger:        deps.logger(),
	}
}

type imageView struct {
	models.ImageFile
	URL string `json:"url"`
}

// HandleUploadImages accepts one or more images (multipart field "files")
func (h *ImageHandlerImpl) HandleUploadImages(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	files := form.File["files"]
	if err := upload.Validate(upload.WidgetImages, files); err != nil {
		return err
	}

	var uploads []models.UploadedFile
	if fresh := untakenFiles(files, sess.HasImage); len(fresh) > 0 {
		uploads, err = upload.SaveBatch(c.Request().Context(), h.store, sess.ID, upload.WidgetImages, fresh, h.parallelSaves)
		if err != nil {
			return err
		}
	}

	images := make([]*models.ImageFile, 0, len(uploads))
	for _, u := range uploads {
		images = append(images, h.describe(u))
	}
	added, ignored := sess.AddImages(images)
	for _, img := range ignored {
		releaseBlobs(h.store, h.logger, img.BlobID)
	}
	h.metrics.ObserveUpload(string(upload.WidgetImages), added)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"added":  added,
		"images": imageViews(sess.ID, sess.Images()),
	})
}

// describe reads the image header for its dimensions. Images that cannot be
// decoded are still listed, with zero dimensions.
func (h *ImageHandlerImpl) describe(u models.UploadedFile) *models.ImageFile {
	img := &models.ImageFile{
		Name:        u.Name,
		Caption:     models.Caption(u.Name),
		ContentType: u.DeclaredType,
		SizeBytes:   u.SizeBytes,
		BlobID:      u.BlobID,
	}

	rc, err := h.store.Open(u.BlobID)
	if err != nil {
		h.logger.Warn("failed to open image", "name", u.Name, "error", err)
		return img
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		h.logger.Debug("image header not decodable", "name", u.Name, "error", err)
		return img
	}
	img.Width = cfg.Width
	img.Height = cfg.Height
	return img
}

// HandleListImages returns the gallery in upload order
func (h *ImageHandlerImpl) HandleListImages(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, imageViews(sess.ID, sess.Images()))
}

// HandleGetImage streams the raw bytes of an image
func (h *ImageHandlerImpl) HandleGetImage(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	name := nameParam(c)
	img, ok := sess.Image(name)
	if !ok {
		return NewNotFoundError("image", name)
	}

	rc, err := h.store.Open(img.BlobID)
	if err != nil {
		return err
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, img.ContentType, rc)
}

func imageViews(sessionID string, images []models.ImageFile) []imageView {
	views := make([]imageView, 0, len(images))
	for _, img := range images {
		views = append(views, imageView{
			ImageFile: img,
			URL:       fmt.Sprintf("/api/sessions/%s/images/%s", sessionID, url.PathEscape(img.Name)),
		})
	}
	return views
}

// nameParam returns the :name route parameter. Echo routes on the raw path
// only when the request carried one, and only then is the value still escaped.
func nameParam(c echo.Context) string {
	raw := c.Param("name")
	if c.Request().URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
