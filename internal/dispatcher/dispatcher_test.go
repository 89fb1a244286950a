package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/acetools/acemap/internal/feed"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got feed.Message
	d.Register("positions", func(m feed.Message) error {
		got = m
		return nil
	})

	err := d.Dispatch(feed.Message{Topic: "positions", Payload: []byte("x")})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if string(got.Payload) != "x" {
		t.Errorf("handler got %q", got.Payload)
	}
}

func TestDispatcher_SyncHandlerError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	want := errors.New("boom")

	d.Register("positions", func(feed.Message) error { return want })

	if err := d.Dispatch(feed.Message{Topic: "positions"}); !errors.Is(err, want) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestDispatcher_UnknownTopic(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(feed.Message{Topic: "nope"})

	if err == nil || !strings.Contains(err.Error(), "unknown topic: nope") {
		t.Errorf("expected unknown topic error, got %v", err)
	}
}

func TestDispatcher_AnyTopicFallback(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var exact, fallback atomic.Int32
	d.Register("positions", func(feed.Message) error { exact.Add(1); return nil })
	d.Register(AnyTopic, func(feed.Message) error { fallback.Add(1); return nil })

	_ = d.Dispatch(feed.Message{Topic: "positions"})
	_ = d.Dispatch(feed.Message{Topic: "ace/positions/shard2"})

	if exact.Load() != 1 || fallback.Load() != 1 {
		t.Errorf("expected 1/1, got %d/%d", exact.Load(), fallback.Load())
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register("positions", func(feed.Message) error {
		processed.Add(1)
		wg.Done()
		return nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		if err := d.Dispatch(feed.Message{Topic: "positions"}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("full", func(feed.Message) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}, Buffered(2))
	defer close(block)

	_ = d.Dispatch(feed.Message{Topic: "full"})
	<-started // first message is being processed

	_ = d.Dispatch(feed.Message{Topic: "full"}) // queued
	_ = d.Dispatch(feed.Message{Topic: "full"}) // queued

	err := d.Dispatch(feed.Message{Topic: "full"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("blocking", func(feed.Message) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}, Buffered(1), Blocking())

	_ = d.Dispatch(feed.Message{Topic: "blocking"})
	<-started
	_ = d.Dispatch(feed.Message{Topic: "blocking"})

	done := make(chan struct{})
	go func() {
		_ = d.Dispatch(feed.Message{Topic: "blocking"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
	<-done
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("logged", func(feed.Message) error { return nil }, Logged())

	_ = d.Dispatch(feed.Message{Topic: "logged", Payload: []byte("ab")})

	if n := len(logger.snapshot()); n < 2 {
		t.Errorf("expected at least 2 log messages, got %d", n)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("error", func(feed.Message) error {
		return fmt.Errorf("test error")
	}, Logged())

	_ = d.Dispatch(feed.Message{Topic: "error"})

	hasError := false
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_LoggedHandlerMalformedIsDebug(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("positions", func(feed.Message) error {
		return fmt.Errorf("decode record: %w", feed.ErrMalformedRecord)
	}, Logged())

	_ = d.Dispatch(feed.Message{Topic: "positions"})

	rejected := false
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			t.Errorf("malformed record logged as error: %s", msg)
		}
		if strings.HasPrefix(msg, "DEBUG: message rejected") {
			rejected = true
		}
	}
	if !rejected {
		t.Error("expected debug rejection message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("exists", func(feed.Message) error { return nil })

	if !d.HasHandler("exists") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("missing") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	logger := &testLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatal(err)
	}

	var processed atomic.Int32
	d.Register("positions", func(feed.Message) error {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil
	}, Buffered(10), Logged())

	for i := 0; i < 5; i++ {
		_ = d.Dispatch(feed.Message{Topic: "positions"})
	}
	d.Close()
	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected 5 processed after Close, got %d", processed.Load())
	}
	if err := d.Dispatch(feed.Message{Topic: "positions"}); err == nil {
		t.Error("expected error after Close")
	}
	if n := len(logger.snapshot()); n < 10 {
		t.Errorf("expected logging from the queue worker, got %d messages", n)
	}
}
