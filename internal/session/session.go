package session

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/file-upload-app/backend/internal/filecache"
	"github.com/file-upload-app/backend/internal/models"
)

// BlobOpener opens the stored bytes of an upload by blob id.
type BlobOpener func(blobID string) (io.ReadCloser, error)

// Session is one browser's state: its document cache, image gallery and
// current dataset. All methods serialize on the session's mutex.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	documents  *filecache.Cache
	images     []*models.ImageFile
	imageIndex map[string]*models.ImageFile
	dataset    *models.Dataset
}

func newSession(id string, extractor filecache.Extractor, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		documents:  filecache.New(extractor),
		imageIndex: make(map[string]*models.ImageFile),
	}
}

// IngestDocuments adds uploaded documents to the cache in order. It returns
// how many names were new and the uploads that lost to an existing name.
func (s *Session) IngestDocuments(files []models.UploadedFile) (int, []models.UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	var ignored []models.UploadedFile
	for _, f := range files {
		if s.documents.Ingest(f) {
			added++
			continue
		}
		ignored = append(ignored, f)
	}
	return added, ignored
}

// HasDocument reports whether a document with this name was ingested.
func (s *Session) HasDocument(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.documents.Get(name)
	return ok
}

// ToggleDetails flips the details panel of a document.
func (s *Session) ToggleDetails(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.ToggleDetails(name)
}

// ViewContent returns the text of a document, extracting it on first view.
// The record's declared type selects the extraction strategy.
func (s *Session) ViewContent(name string, open BlobOpener) (models.Content, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.documents.Get(name)
	if !ok {
		return models.Content{}, false, fmt.Errorf("%w: %s", filecache.ErrFileNotFound, name)
	}
	kind := models.KindFromDeclaredType(rec.File.DeclaredType)
	blobID := rec.File.BlobID

	return s.documents.GetContent(name, kind, func() (io.ReadCloser, error) {
		return open(blobID)
	})
}

// Document returns a snapshot of one document record.
func (s *Session) Document(name string) (filecache.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.Get(name)
}

// Documents returns snapshots of all document records in upload order.
func (s *Session) Documents() []filecache.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents.Records()
}

// AddImages appends images to the gallery. Names already shown keep their
// first upload; the losing images are returned.
func (s *Session) AddImages(images []*models.ImageFile) (int, []*models.ImageFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	var ignored []*models.ImageFile
	for _, img := range images {
		if _, ok := s.imageIndex[img.Name]; ok {
			ignored = append(ignored, img)
			continue
		}
		s.imageIndex[img.Name] = img
		s.images = append(s.images, img)
		added++
	}
	return added, ignored
}

// HasImage reports whether the gallery shows an image with this name.
func (s *Session) HasImage(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.imageIndex[name]
	return ok
}

// Images returns the gallery in upload order.
func (s *Session) Images() []models.ImageFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ImageFile, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, *img)
	}
	return out
}

// Image looks up a gallery image by name.
func (s *Session) Image(name string) (models.ImageFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.imageIndex[name]
	if !ok {
		return models.ImageFile{}, false
	}
	return *img, true
}

// SetDataset replaces the current dataset and returns the one it replaced,
// or nil.
func (s *Session) SetDataset(ds *models.Dataset) *models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.dataset
	s.dataset = ds
	return prev
}

// Dataset returns the current dataset, or nil.
func (s *Session) Dataset() *models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

func (s *Session) info(lastAccessed time.Time) models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SessionInfo{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LastAccessed: lastAccessed,
		Documents:    s.documents.Len(),
		Images:       len(s.images),
		HasDataset:   s.dataset != nil,
	}
}
