// Package pomodoro runs one timer engine per user behind a single serialized
// update path, keeps its tick driver in step with the running state and
// forwards lifecycle events to the session recorder.
package pomodoro

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"focusboard/backend/internal/ticker"
	"focusboard/backend/internal/timer"
)

var (
	ErrVersionConflict = errors.New("state version conflict")
	ErrClosed          = errors.New("controller closed")
)

// EventSink receives timer events in emission order.
type EventSink interface {
	Handle(ctx context.Context, userID string, event timer.Event) error
}

type Snapshot struct {
	State    timer.State    `json:"state"`
	Settings timer.Settings `json:"settings"`
	Version  int            `json:"version"`
}

type Options struct {
	TickInterval time.Duration
	NewTicker    ticker.TickerFunc
	SinkTimeout  time.Duration
	Logger       *log.Logger
}

type Controller struct {
	userID      string
	sink        EventSink
	logger      *log.Logger
	sinkTimeout time.Duration
	driver      *ticker.Driver
	dispatch    *dispatcher

	mu      sync.Mutex
	engine  *timer.Engine
	version int
	closed  bool
}

func NewController(userID string, settings timer.Settings, sink EventSink, opts Options) (*Controller, error) {
	engine, err := timer.New(settings)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = 5 * time.Second
	}

	c := &Controller{
		userID:      userID,
		sink:        sink,
		logger:      opts.Logger.With("userID", userID),
		sinkTimeout: opts.SinkTimeout,
		driver:      ticker.NewDriver(opts.TickInterval, opts.NewTicker),
		engine:      engine,
		version:     1,
	}
	c.dispatch = newDispatcher(c.deliver)
	return c, nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Start(taskID *string, baseVersion int) (Snapshot, error) {
	return c.apply(baseVersion, func(e *timer.Engine) ([]timer.Event, error) {
		return e.Start(taskID), nil
	})
}

func (c *Controller) Pause(baseVersion int) (Snapshot, error) {
	return c.apply(baseVersion, func(e *timer.Engine) ([]timer.Event, error) {
		return e.Pause(), nil
	})
}

func (c *Controller) Resume(baseVersion int) (Snapshot, error) {
	return c.apply(baseVersion, func(e *timer.Engine) ([]timer.Event, error) {
		return e.Resume(), nil
	})
}

func (c *Controller) Stop(baseVersion int) (Snapshot, error) {
	return c.apply(baseVersion, func(e *timer.Engine) ([]timer.Event, error) {
		return e.Stop(), nil
	})
}

func (c *Controller) UpdateSettings(patch timer.SettingsPatch, baseVersion int) (Snapshot, error) {
	return c.UpdateSettingsWith(patch, baseVersion, nil)
}

// UpdateSettingsWith validates the merged settings and hands them to persist
// before the engine sees them. persist runs under the controller lock, after
// the version check, so a rejected request never reaches storage and a
// failed write leaves the engine untouched.
func (c *Controller) UpdateSettingsWith(patch timer.SettingsPatch, baseVersion int, persist func(timer.Settings) error) (Snapshot, error) {
	return c.apply(baseVersion, func(e *timer.Engine) ([]timer.Event, error) {
		merged := patch.Apply(e.Settings())
		if err := merged.Validate(); err != nil {
			return nil, err
		}
		if persist != nil {
			if err := persist(merged); err != nil {
				return nil, err
			}
		}
		return nil, e.UpdateSettings(patch)
	})
}

// Flush waits until every event emitted so far has reached the sink.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	barrier := c.dispatch.barrier()
	c.mu.Unlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops ticking and delivers any queued events before returning.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	driverDone := c.driver.Stop()
	c.mu.Unlock()

	<-driverDone
	<-c.dispatch.close()
}

// Ticking reports whether the tick driver is currently active.
func (c *Controller) Ticking() bool {
	return c.driver.Active()
}

func (c *Controller) apply(baseVersion int, op func(*timer.Engine) ([]timer.Event, error)) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if baseVersion > 0 && baseVersion != c.version {
		return c.snapshotLocked(), ErrVersionConflict
	}

	before := c.engine.State()
	beforeSettings := c.engine.Settings()
	events, err := op(c.engine)
	if err != nil {
		return c.snapshotLocked(), err
	}
	if len(events) > 0 || !before.Equal(c.engine.State()) || beforeSettings != c.engine.Settings() {
		c.version++
	}
	c.afterLocked(events)
	return c.snapshotLocked(), nil
}

// tick is invoked by the driver. A tick whose generation was cancelled while
// it waited for the lock is dropped.
func (c *Controller) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || ctx.Err() != nil {
		return
	}
	events := c.engine.Tick()
	if len(events) > 0 {
		c.version++
	}
	c.afterLocked(events)
}

func (c *Controller) afterLocked(events []timer.Event) {
	for _, event := range events {
		c.logger.Info("timer event", "event", event.Type, "sessionType", event.SessionType, "elapsed", event.Elapsed)
	}
	c.dispatch.pushEvents(events)
	c.driver.Sync(c.engine.State().IsRunning, c.tick)
}

func (c *Controller) deliver(event timer.Event) {
	if c.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.sinkTimeout)
	defer cancel()
	if err := c.sink.Handle(ctx, c.userID, event); err != nil {
		c.logger.Warn("session event not recorded", "event", event.Type, "err", err)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.engine.State(),
		Settings: c.engine.Settings(),
		Version:  c.version,
	}
}
