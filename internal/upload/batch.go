// Package upload validates multipart upload batches against a widget's
// allow-list and saves them to blob storage.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/storage"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnsupportedFileType is returned when a file's extension is not on
	// the widget's allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrNoFiles is returned for an empty batch.
	ErrNoFiles = errors.New("no files provided")
	// ErrTooManyFiles is returned when a single-file widget receives more
	// than one file.
	ErrTooManyFiles = errors.New("widget accepts a single file")
)

// DefaultParallelSaves bounds concurrent blob writes per batch.
const DefaultParallelSaves = 4

// Widget identifies one of the upload controls of the frontend.
type Widget string

const (
	WidgetImages    Widget = "images"
	WidgetDataset   Widget = "dataset"
	WidgetDocuments Widget = "documents"
)

var widgetExtensions = map[Widget][]string{
	WidgetImages:    {".png", ".jpg", ".jpeg"},
	WidgetDataset:   {".csv"},
	WidgetDocuments: {".pdf", ".docx", ".txt"},
}

// extensionTypes is used when the client sends no usable Content-Type.
var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".csv":  "text/csv",
	".pdf":  models.TypePDF,
	".docx": models.TypeDocx,
	".txt":  models.TypePlainText,
}

// Extensions lists the lower-case extensions the widget accepts.
func (w Widget) Extensions() []string {
	return widgetExtensions[w]
}

// Multiple reports whether the widget takes more than one file per batch.
func (w Widget) Multiple() bool {
	return w != WidgetDataset
}

// Accepts reports whether name has an allowed extension.
func (w Widget) Accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range widgetExtensions[w] {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Validate checks a whole batch before anything is saved.
func Validate(w Widget, files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	if !w.Multiple() && len(files) > 1 {
		return fmt.Errorf("%w: got %d", ErrTooManyFiles, len(files))
	}
	for _, fh := range files {
		if !w.Accepts(fh.Filename) {
			return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFileType, fh.Filename, strings.Join(w.Extensions(), ", "))
		}
	}
	return nil
}

// DeclaredType returns the media type the client sent for a part, falling
// back to the extension table when it is missing or generic.
func DeclaredType(fh *multipart.FileHeader) string {
	ct := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && mediaType != "application/octet-stream" {
			return ct
		}
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(fh.Filename))]; ok {
		return t
	}
	return "application/octet-stream"
}

// SaveBatch validates files for the widget and saves them concurrently.
// The returned uploads are in request order.
func SaveBatch(ctx context.Context, store storage.Store, sessionID string, w Widget, files []*multipart.FileHeader, limit int) ([]models.UploadedFile, error) {
	if err := Validate(w, files); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultParallelSaves
	}

	uploads := make([]models.UploadedFile, len(files))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i, fh := range files {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uploaded, err := saveOne(store, sessionID, fh)
			if err != nil {
				return fmt.Errorf("%s: %w", fh.Filename, err)
			}
			uploads[i] = uploaded
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return uploads, nil
}

func saveOne(store storage.Store, sessionID string, fh *multipart.FileHeader) (models.UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.UploadedFile{}, err
	}
	defer src.Close()

	declared := DeclaredType(fh)
	info, err := store.Save(sessionID, fh.Filename, declared, src)
	if err != nil {
		return models.UploadedFile{}, err
	}
	return models.UploadedFile{
		Name:         fh.Filename,
		DeclaredType: declared,
		SizeBytes:    info.Size,
		BlobID:       info.ID,
	}, nil
}
