package services

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/storage"
)

// ErrMissingSessionID is returned when a browse request carries no session id
var ErrMissingSessionID = errors.New("session id is required")

// BrowseSession is one admin browsing session
type BrowseSession struct {
	SessionID  string
	Browser    *BookingBrowser
	CreatedAt  time.Time
	LastActive time.Time
	ExpiresAt  time.Time

	// held for a whole request, from the collection switch to the response
	inUse sync.Mutex
}

// BrowseSessionManager keeps a BookingBrowser per session id and drops
// sessions that stay idle past the TTL
type BrowseSessionManager struct {
	store      storage.BookingStore
	logger     *zap.Logger
	sessions   map[string]*BrowseSession
	mu         sync.RWMutex
	sessionTTL time.Duration
	now        func() time.Time
}

// NewBrowseSessionManager creates a new session manager
func NewBrowseSessionManager(store storage.BookingStore, ttl time.Duration, logger *zap.Logger) *BrowseSessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &BrowseSessionManager{
		store:      store,
		logger:     logger,
		sessions:   make(map[string]*BrowseSession),
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// Within runs fn on the session's browser positioned on collection,
// creating the session on first use. Switching collection discards the
// browser state. Requests on one session run one at a time, so fn always
// sees the collection it asked for.
func (sm *BrowseSessionManager) Within(sessionID, collection string, fn func(b *BookingBrowser) error) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}
	if err := checkCollection(collection); err != nil {
		return err
	}

	session, created, err := sm.touch(sessionID, collection)
	if err != nil {
		return err
	}
	if created {
		sm.logger.Debug("Browse session created", zap.String("session_id", sessionID), zap.String("collection", collection))
	}

	// outside sm.mu: a slow request must not block other sessions
	session.inUse.Lock()
	defer session.inUse.Unlock()
	if err := session.Browser.Select(collection); err != nil {
		return err
	}
	return fn(session.Browser)
}

// touch extends a live session or replaces a missing or expired one
func (sm *BrowseSessionManager) touch(sessionID, collection string) (*BrowseSession, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if session, exists := sm.sessions[sessionID]; exists && now.Before(session.ExpiresAt) {
		session.LastActive = now
		session.ExpiresAt = now.Add(sm.sessionTTL)
		return session, false, nil
	}

	browser, err := NewBookingBrowser(sm.store, collection, sm.logger)
	if err != nil {
		return nil, false, err
	}
	session := &BrowseSession{
		SessionID:  sessionID,
		Browser:    browser,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(sm.sessionTTL),
	}
	sm.sessions[sessionID] = session
	return session, true, nil
}

// End drops a session
func (sm *BrowseSessionManager) End(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// Sweep removes expired sessions and returns how many were removed
func (sm *BrowseSessionManager) Sweep() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	removed := 0
	for id, session := range sm.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(sm.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		sm.logger.Info("Cleaned up expired browse sessions", zap.Int("removed", removed))
	}
	return removed
}

// SessionStats provides session statistics
type SessionStats struct {
	ActiveSessions       int            `json:"active_sessions"`
	SessionsByCollection map[string]int `json:"sessions_by_collection"`
}

// Stats returns current session statistics
func (sm *BrowseSessionManager) Stats() *SessionStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	stats := &SessionStats{SessionsByCollection: make(map[string]int)}
	now := sm.now()
	for _, session := range sm.sessions {
		if now.Before(session.ExpiresAt) {
			stats.ActiveSessions++
			stats.SessionsByCollection[session.Browser.Collection()]++
		}
	}
	return stats
}
