package models

import "time"

// FileInfo represents metadata about an uploaded blob held by the store.
type FileInfo struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// UploadedFile is a file handed over by an upload widget. Its bytes live in
// the blob store under BlobID and may be read once.
type UploadedFile struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declaredType"`
	SizeBytes    int64  `json:"sizeBytes"`
	BlobID       string `json:"blobId"`
}
