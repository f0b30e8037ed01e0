package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering and routing.
type Config struct {
	Enabled    bool
	BufferSize int

	// DropIfFull drops events when the queue is full instead of blocking
	// the caller. Event types listed in Retain always wait for space.
	DropIfFull bool
	Retain     []string

	// SiteSinks take events whose SiteID matches a key. Everything else goes
	// to the default sink.
	SiteSinks map[string]Sink

	// DrainTimeout bounds how long Close keeps delivering queued events.
	// Zero drains the whole queue. A sink call already in progress is not
	// interrupted.
	DrainTimeout time.Duration
}

// Dispatcher asynchronously forwards audit events to per-site sinks.
type Dispatcher struct {
	sink         Sink
	siteSinks    map[string]Sink
	retain       map[string]struct{}
	dropIfFull   bool
	drainTimeout time.Duration

	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	siteSinks := make(map[string]Sink, len(cfg.SiteSinks))
	for site, s := range cfg.SiteSinks {
		if site != "" && s != nil {
			siteSinks[site] = s
		}
	}
	retain := make(map[string]struct{}, len(cfg.Retain))
	for _, eventType := range cfg.Retain {
		retain[eventType] = struct{}{}
	}

	d := &Dispatcher{
		sink:         sink,
		siteSinks:    siteSinks,
		retain:       retain,
		dropIfFull:   cfg.DropIfFull,
		drainTimeout: cfg.DrainTimeout,
		ch:           make(chan Event, cfg.BufferSize),
		done:         make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	var deadline <-chan time.Time
	if d.drainTimeout > 0 {
		timer := time.NewTimer(d.drainTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-deadline:
			d.dropped.Add(uint64(len(d.ch)))
			return
		default:
		}

		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver hands event to its sink. A panicking sink loses that event only.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()

	d.sinkFor(event.SiteID).Emit(context.Background(), event)
}

func (d *Dispatcher) sinkFor(siteID string) Sink {
	if siteID != "" {
		if s, ok := d.siteSinks[siteID]; ok {
			return s
		}
	}
	return d.sink
}

// Emit queues event for delivery. Missing IDs and timestamps are filled in
// here so every delivered event is addressable.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if _, keep := d.retain[event.EventType]; d.dropIfFull && !keep {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and blocks until the queue is drained or
// DrainTimeout passes. Events left behind count as dropped.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports events that never reached a sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
