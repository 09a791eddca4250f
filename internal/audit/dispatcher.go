package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher forwards events to a Sink from one background goroutine, so a slow sink
// never sits on the request path. A nil *Dispatcher accepts and discards events.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	queue    chan Event
	stopping chan struct{}
	finished chan struct{}

	// mu guards closing queue against in-flight sends.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
}

// NewDispatcher starts the worker, or returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stopping:   make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.loop()
	return d
}

// loop exits once queue is closed and empty.
func (d *Dispatcher) loop() {
	defer close(d.finished)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With DropIfFull a full queue drops it immediately; otherwise Emit
// waits until there is room, ctx is done, or the dispatcher is closing. Every event
// that does not reach the queue is counted in Dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var cancelled <-chan struct{}
	if ctx != nil {
		cancelled = ctx.Done()
	}
	select {
	case d.queue <- event:
	case <-cancelled:
		d.dropped.Add(1)
	case <-d.stopping:
		d.dropped.Add(1)
	}
}

// Close stops intake, lets the worker flush what is queued and waits for it. Safe to
// call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.RLock()
	already := d.closed
	d.mu.RUnlock()
	if already {
		<-d.finished
		return
	}

	// Wake blocked senders before taking the write lock they would otherwise hold off.
	select {
	case <-d.stopping:
	default:
		close(d.stopping)
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.finished
}

// Dropped is the number of events discarded because the queue was full, the caller's
// context ended, or the dispatcher was closing.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
