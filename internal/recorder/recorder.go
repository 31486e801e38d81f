// Package recorder turns timer lifecycle events into persisted session
// records and serves the recorded history.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"focusboard/backend/internal/model"
	"focusboard/backend/internal/timer"
)

type Store interface {
	CreateSession(ctx context.Context, session *model.PomodoroSession) error
	UpdateSession(ctx context.Context, id string, patch model.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, userID string, limit int) ([]model.PomodoroSession, error)
}

// Recorder is the only writer of session records. Persistence errors are
// logged and kept per user; they are never returned into the timer path.
type Recorder struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	mu          sync.Mutex
	provisional map[string]string
	lastErr     map[string]error
}

type Option func(*Recorder)

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Recorder) {
		r.newID = newID
	}
}

func New(store Store, logger *log.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		store:       store,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		provisional: make(map[string]string),
		lastErr:     make(map[string]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle records one event for userID. The returned error is informational;
// it is also kept as the user's history error until the next success.
func (r *Recorder) Handle(ctx context.Context, userID string, event timer.Event) error {
	var err error
	switch event.Type {
	case timer.EventSessionStarted:
		err = r.begin(ctx, userID, event)
	case timer.EventSessionCompleted:
		completed := true
		err = r.finalize(ctx, userID, event, model.SessionPatch{Completed: &completed})
	case timer.EventSessionInterrupted:
		completed := false
		err = r.finalize(ctx, userID, event, model.SessionPatch{Completed: &completed, AddedInterruptions: 1})
	case timer.EventSessionDiscarded:
		err = r.discard(ctx, userID)
	default:
		return nil
	}

	r.setError(userID, err)
	if err != nil {
		r.logger.Error("failed to record session event", "userID", userID, "event", event.Type, "err", err)
	}
	return err
}

// FetchSessions returns the user's recorded sessions, most recent first.
func (r *Recorder) FetchSessions(ctx context.Context, userID string, limit int) ([]model.PomodoroSession, error) {
	sessions, err := r.store.ListSessions(ctx, userID, limit)
	if err != nil {
		r.logger.Warn("session history unavailable", "userID", userID, "err", err)
		return []model.PomodoroSession{}, fmt.Errorf("fetch sessions: %w", err)
	}
	return sessions, nil
}

// LastError reports the most recent persistence failure for userID, or nil.
func (r *Recorder) LastError(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr[userID]
}

// Provisional returns the id of the user's open session record, if any.
func (r *Recorder) Provisional(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.provisional[userID]
	return id, ok
}

func (r *Recorder) begin(ctx context.Context, userID string, event timer.Event) error {
	if staleID, ok := r.Provisional(userID); ok {
		r.logger.Warn("replacing unfinished provisional session", "userID", userID, "sessionID", staleID)
	}

	now := r.now()
	session := model.PomodoroSession{
		ID:              r.newID(),
		UserID:          userID,
		TaskID:          event.TaskID,
		StartTime:       now,
		DurationMinutes: event.PlannedMinutes(),
		SessionType:     string(event.SessionType),
		Completed:       false,
		Interruptions:   0,
		CreatedAt:       now,
	}

	r.mu.Lock()
	delete(r.provisional, userID)
	r.mu.Unlock()

	if err := r.store.CreateSession(ctx, &session); err != nil {
		return fmt.Errorf("create provisional session: %w", err)
	}

	r.mu.Lock()
	r.provisional[userID] = session.ID
	r.mu.Unlock()

	r.logger.Debug("session started", "userID", userID, "sessionID", session.ID, "type", session.SessionType)
	return nil
}

func (r *Recorder) finalize(ctx context.Context, userID string, event timer.Event, patch model.SessionPatch) error {
	id, ok := r.take(userID)
	if !ok {
		return fmt.Errorf("no provisional session for %s event", event.Type)
	}

	end := r.now()
	patch.EndTime = &end
	if err := r.store.UpdateSession(ctx, id, patch); err != nil {
		return fmt.Errorf("finalize session %s: %w", id, err)
	}

	r.logger.Debug("session finalized", "userID", userID, "sessionID", id, "event", event.Type, "elapsed", event.Elapsed)
	return nil
}

func (r *Recorder) discard(ctx context.Context, userID string) error {
	id, ok := r.take(userID)
	if !ok {
		return nil
	}
	if err := r.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("discard session %s: %w", id, err)
	}
	return nil
}

func (r *Recorder) take(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.provisional[userID]
	delete(r.provisional, userID)
	return id, ok
}

func (r *Recorder) setError(userID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.lastErr, userID)
		return
	}
	r.lastErr[userID] = err
}
