package filecache

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/parser"
	"github.com/file-upload-app/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExtractor struct {
	calls int
	inner Extractor
}

func (e *countingExtractor) Extract(kind models.DocumentKind, r io.Reader) models.Content {
	e.calls++
	return e.inner.Extract(kind, r)
}

// oneShot returns an OpenFunc over data that fails the test when the stream
// is opened a second time.
func oneShot(t *testing.T, data []byte) (OpenFunc, *int) {
	opened := 0
	return func() (io.ReadCloser, error) {
		opened++
		if opened > 1 {
			t.Fatalf("stream opened %d times", opened)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}, &opened
}

func newCache() (*Cache, *countingExtractor) {
	ext := &countingExtractor{inner: parser.NewDocumentExtractor(nil)}
	return New(ext), ext
}

func TestIngest_FirstWriteWins(t *testing.T) {
	c, _ := newCache()

	first := models.UploadedFile{Name: "notes.txt", DeclaredType: models.TypePlainText, SizeBytes: 2048, BlobID: "b1"}
	second := models.UploadedFile{Name: "notes.txt", DeclaredType: "application/octet-stream", SizeBytes: 10, BlobID: "b2"}

	assert.True(t, c.Ingest(first))
	_, err := c.ToggleDetails("notes.txt")
	require.NoError(t, err)

	assert.False(t, c.Ingest(second))
	assert.False(t, c.Ingest(second))

	rec, ok := c.Get("notes.txt")
	require.True(t, ok)
	assert.Equal(t, "b1", rec.File.BlobID)
	assert.Equal(t, models.TypePlainText, rec.Metadata.FileType)
	assert.Equal(t, "2.00 KB", rec.Metadata.FileSize())
	assert.True(t, rec.DetailsVisible, "re-ingest must not reset visibility")
	assert.Equal(t, 1, c.Len())
}

func TestIngest_NewRecordDefaults(t *testing.T) {
	c, _ := newCache()
	c.Ingest(models.UploadedFile{Name: "a.pdf", DeclaredType: models.TypePDF})

	rec, ok := c.Get("a.pdf")
	require.True(t, ok)
	assert.False(t, rec.DetailsVisible)
	assert.Nil(t, rec.Content)
}

func TestToggleDetails(t *testing.T) {
	c, _ := newCache()
	c.Ingest(models.UploadedFile{Name: "a.txt", DeclaredType: models.TypePlainText})

	visible, err := c.ToggleDetails("a.txt")
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = c.ToggleDetails("a.txt")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestToggleDetails_UnknownName(t *testing.T) {
	c, _ := newCache()

	_, err := c.ToggleDetails("ghost.txt")
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestToggleDetails_DoesNotTriggerExtraction(t *testing.T) {
	c, ext := newCache()
	c.Ingest(models.UploadedFile{Name: "a.txt", DeclaredType: models.TypePlainText})

	c.ToggleDetails("a.txt")
	c.ToggleDetails("a.txt")

	assert.Equal(t, 0, ext.calls)
	rec, _ := c.Get("a.txt")
	assert.Nil(t, rec.Content)
}

func TestGetContent_PlainText(t *testing.T) {
	c, _ := newCache()
	c.Ingest(models.UploadedFile{Name: "notes.txt", DeclaredType: models.TypePlainText, SizeBytes: 11})
	open, _ := oneShot(t, []byte("hello world"))

	content, fresh, err := c.GetContent("notes.txt", models.KindPlainText, open)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.True(t, content.OK())
	assert.Equal(t, "hello world", content.Text)
}

func TestGetContent_PDFMemoized(t *testing.T) {
	c, ext := newCache()
	c.Ingest(models.UploadedFile{Name: "report.pdf", DeclaredType: models.TypePDF})
	open, opened := oneShot(t, testutil.BuildPDF("Quarterly revenue grew", "Outlook remains stable"))

	first, fresh, err := c.GetContent("report.pdf", models.KindPDF, open)
	require.NoError(t, err)
	require.True(t, first.OK(), "reason: %s", first.Reason)
	assert.True(t, fresh)
	assert.Contains(t, first.Text, "Quarterly revenue grew")
	assert.Contains(t, first.Text, "Outlook remains stable")
	assert.Less(t, strings.Index(first.Text, "Quarterly"), strings.Index(first.Text, "Outlook"))

	second, fresh, err := c.GetContent("report.pdf", models.KindPDF, open)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, *opened)
	assert.Equal(t, 1, ext.calls)
}

func TestGetContent_FailureIsMemoized(t *testing.T) {
	c, ext := newCache()
	c.Ingest(models.UploadedFile{Name: "broken.docx", DeclaredType: models.TypeDocx})
	open, opened := oneShot(t, []byte("definitely not a zip"))

	var content models.Content
	var err error
	assert.NotPanics(t, func() {
		content, _, err = c.GetContent("broken.docx", models.KindWordDocument, open)
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContentFailed, content.Status)
	assert.NotEmpty(t, content.Reason)

	again, fresh, err := c.GetContent("broken.docx", models.KindWordDocument, open)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, content, again)
	assert.Equal(t, 1, *opened)
	assert.Equal(t, 1, ext.calls)
}

func TestGetContent_OtherNeverOpensOrParses(t *testing.T) {
	c, ext := newCache()
	c.Ingest(models.UploadedFile{Name: "photo.png", DeclaredType: "image/png"})

	open := func() (io.ReadCloser, error) {
		t.Fatal("stream must not be opened for unsupported types")
		return nil, nil
	}

	content, fresh, err := c.GetContent("photo.png", models.KindOther, open)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, models.ContentUnsupported, content.Status)
	assert.Equal(t, models.ReasonUnsupported, content.Reason)
	assert.Equal(t, 0, ext.calls)

	content, fresh, err = c.GetContent("photo.png", models.KindOther, open)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, models.ContentUnsupported, content.Status)
}

func TestGetContent_OpenErrorBecomesFailure(t *testing.T) {
	c, ext := newCache()
	c.Ingest(models.UploadedFile{Name: "gone.txt", DeclaredType: models.TypePlainText})

	content, fresh, err := c.GetContent("gone.txt", models.KindPlainText, func() (io.ReadCloser, error) {
		return nil, errors.New("blob evicted")
	})
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, models.Failed("blob evicted"), content)
	assert.Equal(t, 0, ext.calls)
}

func TestGetContent_UnknownName(t *testing.T) {
	c, _ := newCache()

	_, _, err := c.GetContent("ghost.pdf", models.KindPDF, func() (io.ReadCloser, error) {
		t.Fatal("stream must not be opened for unknown names")
		return nil, nil
	})
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestRecords_IngestOrderAndSnapshots(t *testing.T) {
	c, _ := newCache()
	for _, name := range []string{"b.txt", "a.txt", "c.txt"} {
		c.Ingest(models.UploadedFile{Name: name, DeclaredType: models.TypePlainText})
	}
	open, _ := oneShot(t, []byte("text"))
	c.GetContent("a.txt", models.KindPlainText, open)

	records := c.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "b.txt", records[0].Metadata.FileName)
	assert.Equal(t, "a.txt", records[1].Metadata.FileName)
	assert.Equal(t, "c.txt", records[2].Metadata.FileName)
	require.NotNil(t, records[1].Content)

	records[1].Content.Text = "mutated"
	rec, _ := c.Get("a.txt")
	assert.Equal(t, "text", rec.Content.Text)
}
