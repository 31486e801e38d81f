package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusboard/backend/internal/model"
	"focusboard/backend/internal/timer"
)

type memoryStore struct {
	mu        sync.Mutex
	sessions  map[string]model.PomodoroSession
	createErr error
	updateErr error
	listErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]model.PomodoroSession)}
}

func (s *memoryStore) CreateSession(_ context.Context, session *model.PomodoroSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *memoryStore) UpdateSession(_ context.Context, id string, patch model.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return errors.New("not found")
	}
	if patch.EndTime != nil {
		end := *patch.EndTime
		session.EndTime = &end
	}
	if patch.Completed != nil {
		session.Completed = *patch.Completed
	}
	session.Interruptions += patch.AddedInterruptions
	s.sessions[id] = session
	return nil
}

func (s *memoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) ListSessions(_ context.Context, userID string, limit int) ([]model.PomodoroSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.PomodoroSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestRecorder(store Store) (*Recorder, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	seq := 0
	r := New(store, log.New(io.Discard),
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("session-%d", seq)
		}),
	)
	return r, clock
}

func started(sessionType timer.SessionType, total int, taskID *string) timer.Event {
	return timer.Event{Type: timer.EventSessionStarted, SessionType: sessionType, TotalTime: total, TaskID: taskID}
}

func TestHandle_StartedCreatesProvisionalRecord(t *testing.T) {
	store := newMemoryStore()
	r, clock := newTestRecorder(store)
	taskID := "task-7"

	require.NoError(t, r.Handle(context.Background(), "u1", started(timer.SessionWork, 1500, &taskID)))

	id, ok := r.Provisional("u1")
	require.True(t, ok)
	session := store.sessions[id]
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, 25, session.DurationMinutes)
	assert.Equal(t, "work", session.SessionType)
	assert.False(t, session.Completed)
	assert.Zero(t, session.Interruptions)
	assert.Nil(t, session.EndTime)
	assert.Equal(t, clock.now, session.StartTime)
	require.NotNil(t, session.TaskID)
	assert.Equal(t, "task-7", *session.TaskID)
}

func TestHandle_CompletedFinalizesRecord(t *testing.T) {
	store := newMemoryStore()
	r, clock := newTestRecorder(store)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, "u1", started(timer.SessionWork, 1500, nil)))
	id, _ := r.Provisional("u1")
	clock.Advance(25 * time.Minute)
	require.NoError(t, r.Handle(ctx, "u1", timer.Event{Type: timer.EventSessionCompleted, SessionType: timer.SessionWork, TotalTime: 1500}))

	session := store.sessions[id]
	assert.True(t, session.Completed)
	require.NotNil(t, session.EndTime)
	assert.Equal(t, clock.now, *session.EndTime)
	assert.Zero(t, session.Interruptions)
	_, open := r.Provisional("u1")
	assert.False(t, open)
}

func TestHandle_InterruptedFinalizesIncomplete(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, "u1", started(timer.SessionWork, 1500, nil)))
	id, _ := r.Provisional("u1")
	require.NoError(t, r.Handle(ctx, "u1", timer.Event{Type: timer.EventSessionInterrupted, SessionType: timer.SessionWork, Elapsed: 1490}))

	session := store.sessions[id]
	assert.False(t, session.Completed)
	assert.Equal(t, 1, session.Interruptions)
	assert.NotNil(t, session.EndTime)
}

func TestHandle_DiscardedDeletesRecord(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, "u1", started(timer.SessionShortBreak, 300, nil)))
	require.NoError(t, r.Handle(ctx, "u1", timer.Event{Type: timer.EventSessionDiscarded}))

	assert.Empty(t, store.sessions)
}

func TestHandle_UsersAreIsolated(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, "u1", started(timer.SessionWork, 1500, nil)))
	require.NoError(t, r.Handle(ctx, "u2", started(timer.SessionWork, 1500, nil)))
	require.NoError(t, r.Handle(ctx, "u2", timer.Event{Type: timer.EventSessionCompleted}))

	u1, _ := r.Provisional("u1")
	assert.False(t, store.sessions[u1].Completed)
	history, err := r.FetchSessions(ctx, "u2", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Completed)
}

func TestHandle_PersistenceFailureSetsErrorFlag(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("disk full")
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	err := r.Handle(ctx, "u1", started(timer.SessionWork, 1500, nil))
	require.Error(t, err)
	assert.ErrorContains(t, r.LastError("u1"), "disk full")

	err = r.Handle(ctx, "u1", timer.Event{Type: timer.EventSessionCompleted})
	assert.Error(t, err, "completion without a provisional record")

	store.createErr = nil
	require.NoError(t, r.Handle(ctx, "u1", started(timer.SessionWork, 1500, nil)))
	assert.NoError(t, r.LastError("u1"))
}

func TestFetchSessions_MostRecentFirst(t *testing.T) {
	store := newMemoryStore()
	r, clock := newTestRecorder(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Handle(ctx, "u1", started(timer.SessionWork, 60, nil)))
		clock.Advance(time.Minute)
		require.NoError(t, r.Handle(ctx, "u1", timer.Event{Type: timer.EventSessionCompleted}))
	}

	history, err := r.FetchSessions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "session-3", history[0].ID)
	assert.Equal(t, "session-1", history[2].ID)

	again, err := r.FetchSessions(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, history, again)
}

func TestFetchSessions_FailureReturnsEmpty(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("unreachable")
	r, _ := newTestRecorder(store)

	history, err := r.FetchSessions(context.Background(), "u1", 10)

	assert.Error(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
