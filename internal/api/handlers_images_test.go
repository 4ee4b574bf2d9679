package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/file-upload-app/backend/internal/session"
	"github.com/file-upload-app/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImages_UploadListGet(t *testing.T) {
	s := newTestServer(t, session.Options{})
	id := s.createSession(t)
	base := "/api/sessions/" + id + "/images"

	png := testutil.BuildPNG(4, 3)
	rec := s.upload(t, base+"/upload",
		filePart{name: "SUNSET.beach.png", contentType: "image/png", data: png},
		filePart{name: "scan.jpg", data: []byte("not really a jpeg")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []imageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)

	assert.Equal(t, "SUNSET.beach.png", views[0].Name)
	assert.Equal(t, "Sunset", views[0].Caption)
	assert.Equal(t, 4, views[0].Width)
	assert.Equal(t, 3, views[0].Height)
	assert.Equal(t, "/api/sessions/"+id+"/images/SUNSET.beach.png", views[0].URL)

	assert.Equal(t, "Scan", views[1].Caption)
	assert.Equal(t, "image/jpeg", views[1].ContentType)
	assert.Zero(t, views[1].Width)

	rec = s.do(t, http.MethodGet, views[0].URL, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	rec = s.do(t, http.MethodGet, base+"/missing.png", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImages_ReuploadStoresNothing(t *testing.T) {
	s := newTestServer(t, session.Options{})
	id := s.createSession(t)
	base := "/api/sessions/" + id + "/images"

	png := testutil.BuildPNG(2, 2)
	rec := s.upload(t, base+"/upload", filePart{name: "cat.png", contentType: "image/png", data: png})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.upload(t, base+"/upload",
		filePart{name: "cat.png", contentType: "image/png", data: testutil.BuildPNG(8, 8)},
		filePart{name: "dog.png", contentType: "image/png", data: png},
		filePart{name: "dog.png", contentType: "image/png", data: testutil.BuildPNG(8, 8)},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"added":1`)
	assert.Equal(t, 2, s.store.GetFileCount())

	rec = s.do(t, http.MethodGet, base+"/cat.png", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestImages_Rejections(t *testing.T) {
	s := newTestServer(t, session.Options{})
	id := s.createSession(t)

	rec := s.upload(t, "/api/sessions/"+id+"/images/upload", filePart{name: "anim.gif", data: []byte("GIF89a")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", decodeError(t, rec).Code)

	rec = s.upload(t, "/api/sessions/"+id+"/images/upload")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}
