package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager is the stateful host around the stateless coordinator: it loads the
// session, runs the turn, applies the resulting events and saves the session,
// one turn at a time per session. Different sessions proceed in parallel.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store       ports.SessionStore
	coordinator ports.Coordinator

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session manager over the given store and coordinator.
func NewManager(store ports.SessionStore, coordinator ports.Coordinator, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		coordinator: coordinator,
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Start opens a session. An existing session is returned as-is (started is
// false); otherwise the bootstrap events are applied and the session saved.
func (m *Manager) Start(ctx context.Context, sessionID string) (s *domain.Session, started bool, err error) {
	err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, started, err = m.loadOrStart(ctx, sessionID)
		return err
	})
	return s, started, err
}

func (m *Manager) loadOrStart(ctx context.Context, sessionID string) (*domain.Session, bool, error) {
	s, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, fmt.Errorf("failed to check session existence: %w", err)
	}

	s = domain.NewSession(sessionID)
	s.Apply(m.coordinator.Bootstrap(ctx, sessionID)...)
	s.UpdatedAt = m.now()

	if err := m.store.Save(ctx, sessionID, s); err != nil {
		return nil, false, fmt.Errorf("failed to initialize session: %w", err)
	}
	return s, true, nil
}

// Turn feeds one answer to the session's form.
//
// When form is empty the active form continues. Naming a form other than the
// active one starts it afresh and the candidate is ignored. Unknown sessions
// are bootstrapped first.
func (m *Manager) Turn(ctx context.Context, sessionID string, form domain.FormName, candidate domain.Candidate) (*domain.Session, *domain.TurnResult, error) {
	var (
		s   *domain.Session
		res *domain.TurnResult
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, _, err = m.loadOrStart(ctx, sessionID)
		if err != nil {
			return err
		}

		req := domain.TurnRequest{
			SessionID: sessionID,
			Form:      s.ActiveForm,
			Slots:     s.Snapshot().Slots,
		}
		switch {
		case form != "" && form != s.ActiveForm:
			req.Form = form
		case req.Form == "":
			return fmt.Errorf("%w: no active form", domain.ErrUnknownForm)
		default:
			req.RequestedSlot = s.RequestedSlot
			req.Candidate = candidate
		}

		res, err = m.coordinator.Turn(ctx, req)
		if err != nil {
			return err
		}

		s.Apply(res.Events...)
		if res.Status.IsTerminal() {
			s.ActiveForm = ""
			s.RequestedSlot = ""
		} else {
			s.ActiveForm = req.Form
			s.RequestedSlot = res.RequestedSlot
		}
		s.UpdatedAt = m.now()

		if err := m.store.Save(ctx, sessionID, s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return s, res, nil
}

// Cancel abandons the active form. Transient slots are cleared and the
// email in use (or the remembered one) is kept as previous_email.
func (m *Manager) Cancel(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}

		email := s.SlotString(domain.SlotEmail)
		if email == "" {
			email = s.SlotString(domain.SlotPreviousEmail)
		}
		s.Apply(domain.ClearAllSlots())
		if email != "" {
			s.Apply(domain.SetSlot(domain.SlotPreviousEmail, email))
		}
		s.ActiveForm = ""
		s.RequestedSlot = ""
		s.UpdatedAt = m.now()

		return m.store.Save(ctx, sessionID, s)
	})
	return s, err
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		return err
	})
	return s, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
