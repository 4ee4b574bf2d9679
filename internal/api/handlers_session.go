// handlers_session.go - Session lifecycle handlers
package api

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/file-upload-app/backend/internal/session"
	"github.com/file-upload-app/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessions: sessions}
}

// HandleCreateSession starts a new browser session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessions.Create()
	if err != nil {
		return err
	}

	info, err := h.sessions.Info(sess.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleGetSession returns a summary of a session
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	info, err := h.sessions.Info(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteSession ends a session and drops its uploads
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if err := h.sessions.Delete(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleKeepAlive marks a session as used so cleanup leaves it alone
func (h *SessionHandlerImpl) HandleKeepAlive(c echo.Context) error {
	if _, err := lookupSession(c, h.sessions); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// lookupSession resolves the :sessionId route parameter and touches the
// session.
func lookupSession(c echo.Context, sessions SessionManager) (*session.Session, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	return sessions.Get(id)
}

// untakenFiles drops parts whose name the session already shows, and repeats
// of a name within the batch. First upload wins, so those bytes are never
// stored.
func untakenFiles(files []*multipart.FileHeader, taken func(name string) bool) []*multipart.FileHeader {
	seen := make(map[string]bool, len(files))
	kept := make([]*multipart.FileHeader, 0, len(files))
	for _, fh := range files {
		if seen[fh.Filename] || taken(fh.Filename) {
			continue
		}
		seen[fh.Filename] = true
		kept = append(kept, fh)
	}
	return kept
}

// releaseBlobs deletes stored uploads nothing refers to.
func releaseBlobs(store storage.Store, logger *slog.Logger, ids ...string) {
	for _, id := range ids {
		if err := store.Delete(id); err != nil {
			logger.Warn("failed to release unused upload", "blob", id, "error", err)
		}
	}
}
