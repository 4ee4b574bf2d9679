package models

import "time"

// SessionInfo describes a browser session as returned by the API.
type SessionInfo struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
	Documents    int       `json:"documents"`
	Images       int       `json:"images"`
	HasDataset   bool      `json:"hasDataset"`
}
