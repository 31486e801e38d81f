// Package ticker drives a countdown at a fixed interval while it is running.
package ticker

import (
	"context"
	"sync"
	"time"
)

// Ticker is the subset of *time.Ticker the driver needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds a Ticker for the given interval.
type TickerFunc func(time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Driver owns at most one ticking goroutine. Sync must be called after every
// state change so the goroutine exists exactly while the countdown runs.
type Driver struct {
	interval  time.Duration
	newTicker TickerFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDriver(interval time.Duration, newTicker TickerFunc) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	if newTicker == nil {
		newTicker = NewStdTicker
	}
	return &Driver{interval: interval, newTicker: newTicker}
}

// Sync starts the driver when running is true and it is idle, and stops it
// when running is false. tick receives the context of the generation that
// produced it; a cancelled context means the tick is stale.
func (d *Driver) Sync(running bool, tick func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !running {
		d.stopLocked()
		return
	}
	if d.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	t := d.newTicker(d.interval)
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				if ctx.Err() != nil {
					return
				}
				tick(ctx)
			}
		}
	}()
}

// Active reports whether a ticking goroutine is currently owned.
func (d *Driver) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Stop cancels the driver and returns a channel closed once its goroutine
// has exited. Do not wait on it while holding a lock the tick callback takes.
func (d *Driver) Stop() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	done := d.done
	d.stopLocked()
	if done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return done
}

func (d *Driver) stopLocked() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.cancel = nil
	d.done = nil
}
