package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "e"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherAssignsIDAndTimestamp(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "verify_success"})

	select {
	case ev := <-sink.Events():
		if _, err := uuid.Parse(ev.ID); err != nil {
			t.Fatalf("expected uuid id, got %q", ev.ID)
		}
		if ev.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be filled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected event")
	}
}

func TestDispatcherKeepsCallerID(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{ID: "fixed", EventType: "e"})

	select {
	case ev := <-sink.Events():
		if ev.ID != "fixed" {
			t.Fatalf("expected caller id to be kept, got %q", ev.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected event")
	}
}

func TestDispatcherBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestDispatcherBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, NoOpSink{})

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

func TestDispatcherRoutesBySite(t *testing.T) {
	fallback := NewChannelSink(4)
	siteA := NewChannelSink(4)
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 4,
		SiteSinks:  map[string]Sink{"site-a": siteA},
	}, fallback)

	d.Emit(context.Background(), Event{EventType: "verify_success", SiteID: "site-a"})
	d.Emit(context.Background(), Event{EventType: "verify_success", SiteID: "site-b"})
	d.Emit(context.Background(), Event{EventType: "verify_success"})
	d.Close()

	if got := len(siteA.Events()); got != 1 {
		t.Fatalf("expected 1 event on site-a sink, got %d", got)
	}
	if ev := <-siteA.Events(); ev.SiteID != "site-a" {
		t.Fatalf("unexpected site-a event: %+v", ev)
	}
	if got := len(fallback.Events()); got != 2 {
		t.Fatalf("expected 2 events on default sink, got %d", got)
	}
}

func TestDispatcherRetainedEventsWaitForSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		Retain:     []string{"secret_rotated"},
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "secret_rotated"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected retained event to wait instead of being dropped")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected retained event to be queued once space frees up")
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

func TestDispatcherCancelledEmitCountsAsDropped(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "e3"})

	if d.Dropped() != 1 {
		t.Fatalf("expected cancelled emit to count as dropped, got %d", d.Dropped())
	}
}

type panicSink struct {
	delivered chan Event
}

func (s *panicSink) Emit(_ context.Context, event Event) {
	if event.EventType == "boom" {
		panic("sink failure")
	}
	s.delivered <- event
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	sink := &panicSink{delivered: make(chan Event, 1)}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	d.Emit(context.Background(), Event{EventType: "boom"})
	d.Emit(context.Background(), Event{EventType: "verify_success"})

	select {
	case ev := <-sink.delivered:
		if ev.EventType != "verify_success" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected dispatcher to keep delivering after a sink panic")
	}

	d.Close()
	if d.Dropped() != 1 {
		t.Fatalf("expected panicked event to count as dropped, got %d", d.Dropped())
	}
}

type slowSink struct {
	delay time.Duration
}

func (s slowSink) Emit(context.Context, Event) {
	time.Sleep(s.delay)
}

func TestDispatcherCloseStopsAtDrainTimeout(t *testing.T) {
	d := NewDispatcher(Config{
		Enabled:      true,
		BufferSize:   32,
		DrainTimeout: 40 * time.Millisecond,
	}, slowSink{delay: 30 * time.Millisecond})

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "verify_success"})
	}

	start := time.Now()
	d.Close()
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("expected Close to give up near the drain timeout, took %s", elapsed)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected undelivered events to count as dropped")
	}
}

func TestDispatcherCloseDrainsEverythingWithoutTimeout(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "verify_success"})
	}
	d.Close()

	if got := len(sink.Events()); got != 10 {
		t.Fatalf("expected all 10 events delivered, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		ID:        "a1",
		Timestamp: time.Now().UTC(),
		EventType: "autologin_issued",
		UserID:    42,
		IP:        "127.0.0.1",
		Success:   true,
	})

	out := buf.String()
	if !strings.Contains(out, "autologin_issued") {
		t.Fatal("expected JSON line to contain event type")
	}
	if !strings.Contains(out, `"user_id":42`) {
		t.Fatalf("expected JSON line to contain user id, got %s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated output")
	}
}

func TestLogrusSinkLevels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogrusSink(logger)

	sink.Emit(context.Background(), Event{ID: "1", EventType: "verify_success", Success: true, IP: "10.0.0.1"})
	sink.Emit(context.Background(), Event{ID: "2", EventType: "verify_failure", Error: "invalid_signature", Metadata: map[string]string{"k": "v"}})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != logrus.InfoLevel || entries[0].Data["ip"] != "10.0.0.1" {
		t.Fatalf("unexpected success entry: %+v", entries[0])
	}
	if entries[1].Level != logrus.WarnLevel || entries[1].Data["error"] != "invalid_signature" || entries[1].Data["meta_k"] != "v" {
		t.Fatalf("unexpected failure entry: %+v", entries[1])
	}
}
