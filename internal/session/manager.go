// Package session keeps one isolated state object per browser session.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/file-upload-app/backend/internal/filecache"
	"github.com/file-upload-app/backend/internal/metrics"
	"github.com/file-upload-app/backend/internal/models"
	"github.com/file-upload-app/backend/internal/storage"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the cap is reached and every
	// session is still within its keep-alive window.
	ErrTooManySessions = errors.New("too many active sessions")
)

// DefaultMaxSessions limits live sessions when Options leaves it unset.
const DefaultMaxSessions = 100

// DefaultKeepAliveWindow protects recently used sessions from eviction.
const DefaultKeepAliveWindow = 5 * time.Minute

// Options configures a Manager.
type Options struct {
	MaxSessions     int
	KeepAliveWindow time.Duration
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
}

type sessionState struct {
	session      *Session
	lastAccessed time.Time
}

// Manager handles live browser sessions.
type Manager struct {
	sessions map[string]*sessionState
	mu       sync.RWMutex

	store     storage.Store
	extractor filecache.Extractor

	maxSessions int
	keepAlive   time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewManager creates a session manager. Blobs of ended sessions are removed
// from store.
func NewManager(store storage.Store, extractor filecache.Extractor, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.KeepAliveWindow <= 0 {
		opts.KeepAliveWindow = DefaultKeepAliveWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		sessions:    make(map[string]*sessionState),
		store:       store,
		extractor:   extractor,
		maxSessions: opts.MaxSessions,
		keepAlive:   opts.KeepAliveWindow,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         time.Now,
	}
}

// Create starts a new session. At the cap, the least recently used session
// outside the keep-alive window is ended to make room.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	var evicted string
	if len(m.sessions) >= m.maxSessions {
		evicted = m.oldestEvictableLocked()
		if evicted == "" {
			m.mu.Unlock()
			return nil, ErrTooManySessions
		}
		delete(m.sessions, evicted)
	}

	now := m.now()
	sess := newSession(uuid.New().String(), m.extractor, now)
	m.sessions[sess.ID] = &sessionState{session: sess, lastAccessed: now}
	count := len(m.sessions)
	m.mu.Unlock()

	if evicted != "" {
		m.logger.Info("evicted idle session to make room", "session", evicted)
		m.releaseBlobs(evicted)
	}
	m.metrics.SetActiveSessions(count)
	m.logger.Info("session created", "session", sess.ID)
	return sess, nil
}

func (m *Manager) oldestEvictableLocked() string {
	cutoff := m.now().Add(-m.keepAlive)
	var oldestID string
	var oldest time.Time
	for id, state := range m.sessions {
		if state.lastAccessed.After(cutoff) {
			continue
		}
		if oldestID == "" || state.lastAccessed.Before(oldest) {
			oldestID = id
			oldest = state.lastAccessed
		}
	}
	return oldestID
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	state.lastAccessed = m.now()
	return state.session, nil
}

// Touch marks a session as used without returning it.
func (m *Manager) Touch(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// Info describes a live session.
func (m *Manager) Info(id string) (models.SessionInfo, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	var sess *Session
	var lastAccessed time.Time
	if ok {
		sess = state.session
		lastAccessed = state.lastAccessed
	}
	m.mu.RUnlock()
	if !ok {
		return models.SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess.info(lastAccessed), nil
}

// Delete ends a session and drops everything it uploaded.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	m.releaseBlobs(id)
	m.metrics.SetActiveSessions(count)
	m.logger.Info("session ended", "session", id)
	return nil
}

// CleanupOldSessions ends sessions idle for longer than maxAge and returns
// how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := m.now().Add(-maxAge)
	var expired []string
	for id, state := range m.sessions {
		if state.lastAccessed.Before(cutoff) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, id := range expired {
		m.releaseBlobs(id)
		m.logger.Info("cleaned up idle session", "session", id)
	}
	if len(expired) > 0 {
		m.metrics.SetActiveSessions(count)
	}
	return len(expired)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.sessions = make(map[string]*sessionState)
	m.mu.Unlock()

	for _, id := range ids {
		m.releaseBlobs(id)
	}
	m.metrics.SetActiveSessions(0)
}

func (m *Manager) releaseBlobs(id string) {
	if m.store == nil {
		return
	}
	if err := m.store.DeleteSession(id); err != nil {
		m.logger.Warn("failed to release session files", "session", id, "error", err)
	}
}
