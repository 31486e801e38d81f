package pomodoro

import (
	"sync"

	"focusboard/backend/internal/timer"
)

type dispatchItem struct {
	event   timer.Event
	barrier chan struct{}
}

// dispatcher delivers events to a handler in order on a single goroutine.
// push never blocks, so the timer path does not wait on persistence.
type dispatcher struct {
	mu      sync.Mutex
	pending []dispatchItem
	notify  chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newDispatcher(handle func(timer.Event)) *dispatcher {
	d := &dispatcher{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.run(handle)
	return d
}

func (d *dispatcher) push(items ...dispatchItem) {
	if len(items) == 0 {
		return
	}
	d.mu.Lock()
	d.pending = append(d.pending, items...)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *dispatcher) pushEvents(events []timer.Event) {
	items := make([]dispatchItem, 0, len(events))
	for _, event := range events {
		items = append(items, dispatchItem{event: event})
	}
	d.push(items...)
}

// barrier returns a channel closed once every item pushed before it has been
// handled.
func (d *dispatcher) barrier() <-chan struct{} {
	ch := make(chan struct{})
	d.push(dispatchItem{barrier: ch})
	return ch
}

// close handles what is already queued, then stops the goroutine.
func (d *dispatcher) close() <-chan struct{} {
	d.once.Do(func() {
		close(d.stop)
	})
	return d.done
}

func (d *dispatcher) run(handle func(timer.Event)) {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		d.mu.Unlock()

		for _, item := range batch {
			if item.barrier != nil {
				close(item.barrier)
				continue
			}
			handle(item.event)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-d.notify:
		case <-d.stop:
			d.mu.Lock()
			remaining := d.pending
			d.pending = nil
			d.mu.Unlock()
			for _, item := range remaining {
				if item.barrier != nil {
					close(item.barrier)
					continue
				}
				handle(item.event)
			}
			return
		}
	}
}
