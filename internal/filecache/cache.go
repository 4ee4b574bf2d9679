// Package filecache keeps the per-session record of uploaded documents:
// their metadata, whether the details panel is shown, and the text
// extracted from them.
//
// A Cache is not safe for concurrent use. Each session owns one and
// serializes access to it.
package filecache

import (
	"errors"
	"fmt"
	"io"

	"github.com/file-upload-app/backend/internal/models"
)

// ErrFileNotFound is returned for names that were never ingested.
var ErrFileNotFound = errors.New("file not found")

// Extractor turns a document stream into content. Implementations must not
// panic or return errors; failures are reported through the Content.
type Extractor interface {
	Extract(kind models.DocumentKind, r io.Reader) models.Content
}

// OpenFunc opens the one-shot byte stream of an uploaded file.
type OpenFunc func() (io.ReadCloser, error)

// Record is a snapshot of one document's state.
type Record struct {
	File           models.UploadedFile `json:"-"`
	Metadata       models.FileMetadata `json:"metadata"`
	DetailsVisible bool                `json:"detailsVisible"`
	Content        *models.Content     `json:"content,omitempty"`
}

type record struct {
	file           models.UploadedFile
	metadata       models.FileMetadata
	detailsVisible bool
	content        *models.Content
}

func (r *record) snapshot() Record {
	snap := Record{
		File:           r.file,
		Metadata:       r.metadata,
		DetailsVisible: r.detailsVisible,
	}
	if r.content != nil {
		c := *r.content
		snap.Content = &c
	}
	return snap
}

// Cache maps file names to their records.
type Cache struct {
	extractor Extractor
	records   map[string]*record
	order     []string
}

// New creates an empty cache that extracts text with extractor.
func New(extractor Extractor) *Cache {
	return &Cache{
		extractor: extractor,
		records:   make(map[string]*record),
	}
}

// Ingest records a newly uploaded file. A name that is already known keeps
// its existing metadata, visibility and content; the call then reports false.
func (c *Cache) Ingest(file models.UploadedFile) bool {
	if _, ok := c.records[file.Name]; ok {
		return false
	}
	c.records[file.Name] = &record{
		file:     file,
		metadata: models.NewFileMetadata(file),
	}
	c.order = append(c.order, file.Name)
	return true
}

// ToggleDetails flips the visibility of a file's details and returns the new
// value.
func (c *Cache) ToggleDetails(name string) (bool, error) {
	rec, ok := c.records[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	rec.detailsVisible = !rec.detailsVisible
	return rec.detailsVisible, nil
}

// GetContent returns the text of a file, extracting it on first use. Once a
// result (success or failure) is stored it is returned as is and open is not
// called again. fresh reports whether extraction ran during this call.
func (c *Cache) GetContent(name string, kind models.DocumentKind, open OpenFunc) (content models.Content, fresh bool, err error) {
	rec, ok := c.records[name]
	if !ok {
		return models.Content{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	if rec.content != nil {
		return *rec.content, false, nil
	}

	content = c.extract(kind, open)
	rec.content = &content
	return content, true, nil
}

func (c *Cache) extract(kind models.DocumentKind, open OpenFunc) models.Content {
	switch kind {
	case models.KindPlainText, models.KindPDF, models.KindWordDocument:
	case models.KindOther:
		return models.Unsupported()
	default:
		return models.Unsupported()
	}

	rc, err := open()
	if err != nil {
		return models.Failed(err.Error())
	}
	defer rc.Close()

	return c.extractor.Extract(kind, rc)
}

// Get returns a snapshot of the named record.
func (c *Cache) Get(name string) (Record, bool) {
	rec, ok := c.records[name]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// Records returns snapshots of all records in first-ingest order.
func (c *Cache) Records() []Record {
	out := make([]Record, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.records[name].snapshot())
	}
	return out
}

// Len returns the number of known files.
func (c *Cache) Len() int {
	return len(c.records)
}
