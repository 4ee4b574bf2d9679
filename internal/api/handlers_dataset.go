// handlers_dataset.go - CSV dataset handlers
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/file-upload-app/backend/internal/metrics"
	"github.com/file-upload-app/backend/internal/storage"
	"github.com/file-upload-app/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// DatasetHandlerImpl implements the DatasetHandler interface
type DatasetHandlerImpl struct {
	store    storage.Store
	sessions SessionManager
	loader   DatasetLoader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(deps *Dependencies) DatasetHandler {
	return &DatasetHandlerImpl{
		store:    deps.Store,
		sessions: deps.Sessions,
		loader:   deps.DatasetLoader,
		metrics:  deps.Metrics,
		logger:   deps.logger(),
	}
}

type datasetResponse struct {
	FileName string     `json:"fileName" msgpack:"fileName"`
	Columns  []string   `json:"columns" msgpack:"columns"`
	Rows     [][]string `json:"rows" msgpack:"rows"`
	Page     int        `json:"page" msgpack:"page"`
	PageSize int        `json:"pageSize" msgpack:"pageSize"`
	Total    int        `json:"total" msgpack:"total"`
}

// HandleUploadDataset loads a single CSV file (multipart field "files") and
// makes it the session's current dataset
func (h *DatasetHandlerImpl) HandleUploadDataset(c echo.Context) error {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	ctx := c.Request().Context()
	uploads, err := upload.SaveBatch(ctx, h.store, sess.ID, upload.WidgetDataset, form.File["files"], 1)
	if err != nil {
		return err
	}
	file := uploads[0]

	rc, err := h.store.Open(file.BlobID)
	if err != nil {
		return NewInternalError("failed to open uploaded dataset", err)
	}
	defer rc.Close()

	ds, err := h.loader.Load(ctx, file.Name, rc)
	if err != nil {
		h.logger.Info("dataset rejected", "session", sess.ID, "name", file.Name, "error", err)
		releaseBlobs(h.store, h.logger, file.BlobID)
		return NewInvalidDatasetError(file.Name, err)
	}
	ds.BlobID = file.BlobID

	if prev := sess.SetDataset(ds); prev != nil && prev.BlobID != "" {
		releaseBlobs(h.store, h.logger, prev.BlobID)
	}
	h.metrics.ObserveUpload(string(upload.WidgetDataset), 1)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"fileName": ds.FileName,
		"columns":  ds.Columns,
		"rowCount": ds.RowCount(),
	})
}

// HandleGetDataset returns a page of the current dataset
func (h *DatasetHandlerImpl) HandleGetDataset(c echo.Context) error {
	resp, err := h.page(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetDatasetMsgpack returns a page of the current dataset in MessagePack format
func (h *DatasetHandlerImpl) HandleGetDatasetMsgpack(c echo.Context) error {
	resp, err := h.page(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *DatasetHandlerImpl) page(c echo.Context) (*datasetResponse, error) {
	sess, err := lookupSession(c, h.sessions)
	if err != nil {
		return nil, err
	}

	ds := sess.Dataset()
	if ds == nil {
		return nil, NewNotFoundError("dataset", sess.ID)
	}

	page, pageSize := pagination(c)
	return &datasetResponse{
		FileName: ds.FileName,
		Columns:  ds.Columns,
		Rows:     ds.Page(page, pageSize),
		Page:     page,
		PageSize: pageSize,
		Total:    ds.RowCount(),
	}, nil
}

func pagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}
	return page, pageSize
}
