package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/notify"
	"github.com/Its-donkey/quill/internal/ui/admin"
	"github.com/Its-donkey/quill/internal/ui/modal"
)

const sessionCookieName = "quill_session"

// uiSession is one visitor's view state.
type uiSession struct {
	id     string
	store  *auth.Store
	modal  *modal.Modal
	panel  *admin.Panel
	toasts *notify.Queue

	mu       sync.Mutex
	open     bool
	lastSeen time.Time
}

func (u *uiSession) isOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.open
}

func (u *uiSession) setOpen(open bool) {
	u.mu.Lock()
	u.open = open
	u.mu.Unlock()
}

func (u *uiSession) touch(now time.Time) {
	u.mu.Lock()
	u.lastSeen = now
	u.mu.Unlock()
}

func (u *uiSession) idleSince() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastSeen
}

type sessionOptions struct {
	TTL      time.Duration
	Max      int
	NewStore func() *auth.Store
}

type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*uiSession
	ttl      time.Duration
	max      int
	newStore func() *auth.Store
	now      func() time.Time
}

func newSessionManager(opts sessionOptions) *sessionManager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	limit := opts.Max
	if limit <= 0 {
		limit = defaultMaxSessions
	}
	newStore := opts.NewStore
	if newStore == nil {
		newStore = func() *auth.Store { return auth.NewStore(auth.Options{}) }
	}
	return &sessionManager{
		sessions: make(map[string]*uiSession),
		ttl:      ttl,
		max:      limit,
		newStore: newStore,
		now:      time.Now,
	}
}

// peek returns the live session named by the request cookie. It never
// creates a session or sets a cookie.
func (m *sessionManager) peek(r *http.Request) (*uiSession, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	now := m.now()
	m.mu.Lock()
	sess, ok := m.sessions[c.Value]
	m.mu.Unlock()
	if !ok || now.Sub(sess.idleSince()) >= m.ttl {
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// view returns the visitor's session for rendering. Visitors without one get
// a throwaway default session that is neither stored nor sent as a cookie.
func (m *sessionManager) view(r *http.Request) *uiSession {
	if sess, ok := m.peek(r); ok {
		return sess
	}
	return m.newSession(m.now())
}

// get returns the session named by the request cookie, creating one and
// setting the cookie when it is missing or expired. Only state-changing
// requests call it.
func (m *sessionManager) get(w http.ResponseWriter, r *http.Request) *uiSession {
	if sess, ok := m.peek(r); ok {
		return sess
	}

	now := m.now()
	sess := m.newSession(now)
	m.mu.Lock()
	if len(m.sessions) >= m.max {
		m.evictOldestLocked()
	}
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   isSecureRequest(r),
		MaxAge:   int(m.ttl.Seconds()),
	})
	return sess
}

func (m *sessionManager) newSession(now time.Time) *uiSession {
	return &uiSession{
		id:       uuid.NewString(),
		store:    m.newStore(),
		modal:    modal.New(),
		panel:    admin.NewPanel(),
		toasts:   &notify.Queue{},
		lastSeen: now,
	}
}

// evictOldestLocked drops the least recently seen session. m.mu must be held.
func (m *sessionManager) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range m.sessions {
		seen := sess.idleSince()
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}

// lookup returns an existing session without creating one.
func (m *sessionManager) lookup(id string) (*uiSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *sessionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweep drops sessions idle for longer than the TTL.
func (m *sessionManager) sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.idleSince()) >= m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *sessionManager) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// wait blocks until every session's in-flight auth actions have finished.
func (m *sessionManager) wait() {
	m.mu.Lock()
	stores := make([]*auth.Store, 0, len(m.sessions))
	for _, sess := range m.sessions {
		stores = append(stores, sess.store)
	}
	m.mu.Unlock()
	for _, st := range stores {
		st.Wait()
	}
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
