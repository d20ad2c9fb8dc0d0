package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"chainspace-intake/internal/common/logger"
	"chainspace-intake/internal/common/metrics"
	"chainspace-intake/internal/intake/draftstore"
	"chainspace-intake/internal/intake/wizard"
	"chainspace-intake/internal/models"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

// WizardFactory builds a wizard over a session-scoped draft store.
type WizardFactory func(store *draftstore.Store) *wizard.Wizard

type sessionEntry struct {
	session *models.Session
	wizard  *wizard.Wizard
}

// SessionManager keeps one wizard per applicant session. Draft slots are
// namespaced by session id, so a session reopened after eviction still
// rehydrates its draft from a persistent backend.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	store    *draftstore.Store
	factory  WizardFactory
	idle     time.Duration
	now      func() time.Time
	logger   logger.Logger
}

func NewSessionManager(store *draftstore.Store, factory WizardFactory, idle time.Duration, log logger.Logger) *SessionManager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SessionManager{
		sessions: make(map[string]*sessionEntry),
		store:    store,
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		logger:   log,
	}
}

// Open starts a new session, or reopens id when it is a known session id.
// The wizard always starts at the first section.
func (m *SessionManager) Open(ctx context.Context, id string) (*models.Session, wizard.State, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, wizard.State{}, ErrSessionNotFound
	}

	now := m.now()

	m.mu.Lock()
	entry, ok := m.sessions[id]
	if !ok {
		entry = &sessionEntry{
			session: models.NewSession(id, now),
			wizard:  m.factory(m.store.Namespaced(id)),
		}
		m.sessions[id] = entry
	}
	entry.session.Closed = false
	entry.session.UpdateActivity(now)
	session := *entry.session
	m.updateGaugeLocked()
	m.mu.Unlock()

	state := entry.wizard.Open(ctx)
	return &session, state, nil
}

// Get returns a snapshot of the session and its wizard, and marks the session
// active. The stored session is only touched under m.mu.
func (m *SessionManager) Get(id string) (*models.Session, *wizard.Wizard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	now := m.now()
	if entry.session.IsExpired(now, m.idle) {
		m.removeLocked(id)
		return nil, nil, ErrSessionNotFound
	}
	entry.session.UpdateActivity(now)
	session := *entry.session
	return &session, entry.wizard, nil
}

// Close hides the session's form. The draft is kept for a later reopen.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	entry.wizard.Close()
	entry.session.Closed = true
	entry.session.UpdateActivity(m.now())
	m.updateGaugeLocked()
	return nil
}

// Receipt reads the last receipt written for a session id, whether or not
// the session is still held in memory.
func (m *SessionManager) Receipt(ctx context.Context, id string) (*models.Receipt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	return m.store.Namespaced(id).Receipt(ctx)
}

// Sweep evicts sessions idle for longer than the configured limit and
// returns how many were removed.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, entry := range m.sessions {
		if entry.session.IsExpired(now, m.idle) {
			m.removeLocked(id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("Evicted idle sessions", map[string]interface{}{
			"count":     removed,
			"remaining": len(m.sessions),
		})
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *SessionManager) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) removeLocked(id string) {
	delete(m.sessions, id)
	m.updateGaugeLocked()
}

func (m *SessionManager) updateGaugeLocked() {
	open := 0
	for _, entry := range m.sessions {
		if !entry.session.Closed {
			open++
		}
	}
	metrics.ActiveSessions.Set(float64(open))
}
