package session

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/file-upload-app/backend/internal/filecache"
	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/parser"
	"github.com/file-upload-app/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(store *testutil.MockStorage, opts Options) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(store, parser.NewDocumentExtractor(nil), opts)
	m.now = clock.Now
	return m, clock
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager(testutil.NewMockStorage(), Options{})

	sess, err := m.Create()
	require.NoError(t, err)
	assert.Len(t, sess.ID, 36)

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, m.Count())

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_DeleteReleasesBlobs(t *testing.T) {
	store := testutil.NewMockStorage()
	m, _ := newTestManager(store, Options{})

	sess, err := m.Create()
	require.NoError(t, err)
	store.AddFile(sess.ID, "a.txt", "text/plain", []byte("a"))
	other, err := m.Create()
	require.NoError(t, err)
	store.AddFile(other.ID, "b.txt", "text/plain", []byte("b"))

	require.NoError(t, m.Delete(sess.ID))
	assert.Equal(t, 1, store.GetFileCount())
	assert.Equal(t, 1, m.Count())

	assert.ErrorIs(t, m.Delete(sess.ID), ErrSessionNotFound)
}

func TestManager_CleanupOldSessions(t *testing.T) {
	m, clock := newTestManager(testutil.NewMockStorage(), Options{})

	idle, err := m.Create()
	require.NoError(t, err)
	active, err := m.Create()
	require.NoError(t, err)

	clock.Advance(50 * time.Minute)
	_, err = m.Get(active.ID)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)

	removed := m.CleanupOldSessions(time.Hour)
	assert.Equal(t, 1, removed)

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(active.ID)
	assert.NoError(t, err)
}

func TestManager_MaxSessionsEvictsIdle(t *testing.T) {
	m, clock := newTestManager(testutil.NewMockStorage(), Options{MaxSessions: 2, KeepAliveWindow: time.Minute})

	first, err := m.Create()
	require.NoError(t, err)
	clock.Advance(time.Second)
	second, err := m.Create()
	require.NoError(t, err)

	// Both within the keep-alive window.
	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)

	clock.Advance(2 * time.Minute)
	_, err = m.Get(second.ID)
	require.NoError(t, err)

	third, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count())

	_, err = m.Get(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(third.ID)
	assert.NoError(t, err)
}

func TestManager_InfoAndClose(t *testing.T) {
	store := testutil.NewMockStorage()
	m, _ := newTestManager(store, Options{})

	sess, err := m.Create()
	require.NoError(t, err)
	sess.IngestDocuments([]models.UploadedFile{{Name: "a.txt", DeclaredType: models.TypePlainText}})
	sess.SetDataset(&models.Dataset{FileName: "d.csv"})
	store.AddFile(sess.ID, "a.txt", "text/plain", []byte("a"))

	info, err := m.Info(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, info.ID)
	assert.Equal(t, 1, info.Documents)
	assert.Equal(t, 0, info.Images)
	assert.True(t, info.HasDataset)

	m.Close()
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, store.GetFileCount())
}

func TestManager_InfoConcurrentWithGet(t *testing.T) {
	m, clock := newTestManager(testutil.NewMockStorage(), Options{})

	sess, err := m.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, err := m.Get(sess.ID)
				assert.NoError(t, err)
				clock.Advance(time.Millisecond)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				info, err := m.Info(sess.ID)
				assert.NoError(t, err)
				assert.Equal(t, sess.ID, info.ID)
			}
		}()
	}
	wg.Wait()

	_, err = m.Get(sess.ID)
	require.NoError(t, err)
	info, err := m.Info(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), info.LastAccessed)
}

func TestSession_ReportsIgnoredUploads(t *testing.T) {
	sess := newSession("s", nil, time.Now())

	added, ignored := sess.IngestDocuments([]models.UploadedFile{
		{Name: "a.txt", DeclaredType: models.TypePlainText, BlobID: "1"},
		{Name: "a.txt", DeclaredType: models.TypePlainText, BlobID: "2"},
	})
	assert.Equal(t, 1, added)
	require.Len(t, ignored, 1)
	assert.Equal(t, "2", ignored[0].BlobID)
	assert.True(t, sess.HasDocument("a.txt"))
	assert.False(t, sess.HasDocument("b.txt"))

	assert.Nil(t, sess.SetDataset(&models.Dataset{FileName: "one.csv", BlobID: "d1"}))
	prev := sess.SetDataset(&models.Dataset{FileName: "two.csv", BlobID: "d2"})
	require.NotNil(t, prev)
	assert.Equal(t, "d1", prev.BlobID)
	assert.Equal(t, "two.csv", sess.Dataset().FileName)
}

func TestSessions_AreIsolated(t *testing.T) {
	m, _ := newTestManager(testutil.NewMockStorage(), Options{})

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)

	a.IngestDocuments([]models.UploadedFile{{Name: "notes.txt", DeclaredType: models.TypePlainText}})
	_, err = a.ToggleDetails("notes.txt")
	require.NoError(t, err)

	assert.Len(t, a.Documents(), 1)
	assert.Empty(t, b.Documents())
	_, err = b.ToggleDetails("notes.txt")
	assert.ErrorIs(t, err, filecache.ErrFileNotFound)
}

func TestSession_ViewContentOpensOnce(t *testing.T) {
	store := testutil.NewMockStorage()
	m, _ := newTestManager(store, Options{})
	sess, err := m.Create()
	require.NoError(t, err)

	info := store.AddFile(sess.ID, "notes.txt", "text/plain", []byte("hello world"))
	sess.IngestDocuments([]models.UploadedFile{{
		Name: "notes.txt", DeclaredType: models.TypePlainText, SizeBytes: 11, BlobID: info.ID,
	}})

	content, fresh, err := sess.ViewContent("notes.txt", store.Open)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, models.Extracted("hello world"), content)

	content, fresh, err = sess.ViewContent("notes.txt", store.Open)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, "hello world", content.Text)
	assert.Equal(t, 1, store.OpenCount(info.ID))

	_, _, err = sess.ViewContent("missing.txt", store.Open)
	assert.ErrorIs(t, err, filecache.ErrFileNotFound)
}

func TestSession_ConcurrentViewsExtractOnce(t *testing.T) {
	sess := newSession("s", parser.NewDocumentExtractor(nil), time.Now())
	sess.IngestDocuments([]models.UploadedFile{{Name: "a.txt", DeclaredType: models.TypePlainText, BlobID: "x"}})

	var mu sync.Mutex
	opens := 0
	open := func(string) (io.ReadCloser, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return io.NopCloser(bytes.NewReader([]byte("text"))), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, _, err := sess.ViewContent("a.txt", open)
			assert.NoError(t, err)
			assert.Equal(t, "text", content.Text)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opens)
}

func TestSession_ImagesFirstWriteWins(t *testing.T) {
	sess := newSession("s", nil, time.Now())

	added, ignored := sess.AddImages([]*models.ImageFile{
		{Name: "cat.png", Caption: "Cat", BlobID: "1"},
		{Name: "dog.jpg", Caption: "Dog", BlobID: "2"},
		{Name: "cat.png", Caption: "Cat", BlobID: "3"},
	})
	assert.Equal(t, 2, added)
	require.Len(t, ignored, 1)
	assert.Equal(t, "3", ignored[0].BlobID)
	assert.True(t, sess.HasImage("cat.png"))
	assert.False(t, sess.HasImage("bird.png"))

	images := sess.Images()
	require.Len(t, images, 2)
	assert.Equal(t, "cat.png", images[0].Name)
	assert.Equal(t, "1", images[0].BlobID)
	assert.Equal(t, "dog.jpg", images[1].Name)

	img, ok := sess.Image("dog.jpg")
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(img.Caption, "D"))
	_, ok = sess.Image("bird.png")
	assert.False(t, ok)
}
