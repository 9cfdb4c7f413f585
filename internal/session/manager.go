package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/01moynul/bookshelf-admin/internal/models"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrForbidden      = errors.New("session belongs to another user")
	ErrDraftsDisabled = errors.New("draft storage is not configured")
)

// DraftStore persists form drafts between sessions.
type DraftStore interface {
	Save(ctx context.Context, d *models.Draft) error
	Load(ctx context.Context, id string) (*models.Draft, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	MaxCombinations int
	MaxImageBytes   int64
	IdleTimeout     time.Duration
	Drafts          DraftStore
	Now             func() time.Time
}

// Manager owns every open form session.
type Manager struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{opts: opts, sessions: make(map[string]*Session)}
}

// Create opens a new session for userID with an empty simple-product form.
func (m *Manager) Create(userID int64, parentSKU string) *Session {
	s := m.open(uuid.NewString(), userID, parentSKU)
	zap.S().Debugw("session opened", "session", s.ID, "user", userID)
	return s
}

func (m *Manager) open(id string, userID int64, parentSKU string) *Session {
	form := variation.NewProductForm(parentSKU, m.opts.MaxCombinations)
	s := newSession(id, userID, form, m.opts.MaxImageBytes, m.opts.Now)

	m.mu.Lock()
	old := m.sessions[id]
	m.sessions[id] = s
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return s
}

// Get returns the open session id if it belongs to userID.
func (m *Manager) Get(id string, userID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Closed() {
		return nil, ErrNotFound
	}
	if s.UserID != userID {
		return nil, ErrForbidden
	}
	return s, nil
}

// Close tears down the session id.
func (m *Manager) Close(id string, userID int64) error {
	s, err := m.Get(id, userID)
	if err != nil {
		return err
	}
	m.remove(s)
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	if m.sessions[s.ID] == s {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()
	s.Close()
}

// Finish closes a session after a successful submit and deletes its saved draft.
func (m *Manager) Finish(ctx context.Context, s *Session) {
	m.remove(s)
	if m.opts.Drafts == nil {
		return
	}
	if err := m.opts.Drafts.Delete(ctx, s.ID); err != nil {
		zap.S().Warnw("failed to delete draft after submit", "session", s.ID, "error", err)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the configured timeout and returns how many.
func (m *Manager) Sweep() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.opts.Now().Add(-m.opts.IdleTimeout)

	m.mu.RLock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		m.remove(s)
		zap.S().Infow("idle session closed", "session", s.ID, "user", s.UserID)
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// CloseAll tears down every session, e.g. on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

// SaveDraft stores the current form state under the session id.
func (m *Manager) SaveDraft(ctx context.Context, s *Session) (*models.Draft, error) {
	if m.opts.Drafts == nil {
		return nil, ErrDraftsDisabled
	}
	st, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	now := m.opts.Now()
	d := &models.Draft{ID: s.ID, UserID: s.UserID, State: st, CreatedAt: now, UpdatedAt: now}
	if err := m.opts.Drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", s.ID, err)
	}
	return d, nil
}

// RestoreDraft reopens a saved draft as a session with the same id. An open session with
// that id is replaced.
func (m *Manager) RestoreDraft(ctx context.Context, draftID string, userID int64) (*Session, error) {
	if m.opts.Drafts == nil {
		return nil, ErrDraftsDisabled
	}
	d, err := m.opts.Drafts.Load(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", draftID, err)
	}
	if d.UserID != userID {
		return nil, ErrForbidden
	}

	s := m.open(d.ID, userID, d.State.ParentSKU)
	if err := s.Do(func(f *variation.ProductForm) error { return restore(f, d.State) }); err != nil {
		m.remove(s)
		return nil, fmt.Errorf("restore draft %s: %w", draftID, err)
	}
	zap.S().Infow("draft restored", "session", s.ID, "user", userID)
	return s, nil
}
