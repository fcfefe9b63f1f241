package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/servicedesk/internal/actions"
	"github.com/aretw0/servicedesk/internal/runtime"
	"github.com/aretw0/servicedesk/internal/validator"
	"github.com/aretw0/servicedesk/pkg/adapters/memory"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[sessionID] = sess.Snapshot()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[sessionID]; ok {
		return sess.Snapshot(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

// countingCoordinator counts bootstraps and otherwise defers to a real coordinator.
type countingCoordinator struct {
	*runtime.Coordinator
	mu         sync.Mutex
	bootstraps int
}

func (c *countingCoordinator) Bootstrap(ctx context.Context, sessionID string) []domain.Event {
	c.mu.Lock()
	c.bootstraps++
	c.mu.Unlock()
	return c.Coordinator.Bootstrap(ctx, sessionID)
}

func newCoordinator(records *memory.Records) *countingCoordinator {
	v := validator.New(validator.Config{LocalMode: true})
	a := actions.New(actions.Config{Records: records, LocalMode: true})
	return &countingCoordinator{Coordinator: runtime.NewCoordinator(v, a, runtime.WithRecordStore(records))}
}

func TestManager_StartIsAtomic(t *testing.T) {
	coord := newCoordinator(memory.NewRecords())
	manager := session.NewManager(&SlowStore{}, coord)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _, err := manager.Start(ctx, "atomic-init")
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, coord.bootstraps)

	s, err := manager.Load(ctx, "atomic-init")
	require.NoError(t, err)
	assert.True(t, s.Started)
}

func TestManager_StartSeedsPreviousEmail(t *testing.T) {
	records := memory.NewRecords()
	require.NoError(t, records.Insert(context.Background(), domain.KindUsers,
		domain.LinkRecord{IncidentNumber: "INC1", Email: "old@b.com", SessionID: "sess-1"}.Record()))
	manager := session.NewManager(memory.NewStore(), newCoordinator(records))

	s, started, err := manager.Start(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, "old@b.com", s.SlotString(domain.SlotPreviousEmail))

	_, started, err = manager.Start(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, started, "second start resumes")
}

func TestManager_FeedbackConversation(t *testing.T) {
	records := memory.NewRecords()
	manager := session.NewManager(memory.NewStore(), newCoordinator(records))
	ctx := context.Background()

	s, res, err := manager.Turn(ctx, "sess-1", domain.FormFeedback, domain.AbsentCandidate())
	require.NoError(t, err)
	assert.Equal(t, domain.FormFeedback, s.ActiveForm)
	assert.Equal(t, domain.SlotFeedbackDescription, s.RequestedSlot)
	assert.Equal(t, domain.StatusAwaitingSlot, res.Status)

	_, res, err = manager.Turn(ctx, "sess-1", "", domain.TextCandidate("great bot"))
	require.NoError(t, err)
	assert.Equal(t, domain.SlotEmail, res.RequestedSlot)

	_, res, err = manager.Turn(ctx, "sess-1", "", domain.TextCandidate("a@b.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.SlotConfirmFeedback, res.RequestedSlot)

	s, res, err = manager.Turn(ctx, "sess-1", "", domain.ConfirmationCandidate(true))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "Thank you for your feedback!", res.Messages[0].Text)
	assert.Empty(t, s.ActiveForm)
	assert.Empty(t, s.RequestedSlot)
	assert.Equal(t, map[string]any{domain.SlotPreviousEmail: "a@b.com"}, s.Slots)
	assert.Len(t, records.All(domain.KindFeedback), 1)

	stored, err := manager.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, s.Slots, stored.Slots)
}

func TestManager_TurnWithoutActiveForm(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), newCoordinator(memory.NewRecords()))

	_, _, err := manager.Turn(context.Background(), "sess-1", "", domain.TextCandidate("hello"))
	assert.ErrorIs(t, err, domain.ErrUnknownForm)
}

func TestManager_Cancel(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), newCoordinator(memory.NewRecords()))
	ctx := context.Background()

	_, _, err := manager.Turn(ctx, "sess-1", domain.FormOpenIncident, domain.AbsentCandidate())
	require.NoError(t, err)
	_, _, err = manager.Turn(ctx, "sess-1", "", domain.TextCandidate("a@b.com"))
	require.NoError(t, err)

	s, err := manager.Cancel(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, s.ActiveForm)
	assert.Equal(t, map[string]any{domain.SlotPreviousEmail: "a@b.com"}, s.Slots)
}

func TestManager_TurnsAreSerialised(t *testing.T) {
	records := memory.NewRecords()
	manager := session.NewManager(&SlowStore{}, newCoordinator(records))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Turn(ctx, "race-test", domain.FormFeedback, domain.AbsentCandidate())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, "race-test")
	require.NoError(t, err)
	assert.Equal(t, domain.FormFeedback, s.ActiveForm)
	assert.Equal(t, domain.SlotFeedbackDescription, s.RequestedSlot)
}
