package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acetools/acemap/internal/feed"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/acetools/acemap/internal/dispatcher"

// AnyTopic registers a handler for messages whose topic has no handler of its own.
const AnyTopic = "*"

// ErrQueueFull is returned when a non-blocking buffered handler drops a message.
var ErrQueueFull = errors.New("queue full")

// HandlerFunc processes one feed message.
type HandlerFunc func(feed.Message) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes feed messages to handlers by topic.
// Register all handlers before the first Dispatch.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan feed.Message
	closed  bool
	wg      sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan feed.Message),
		logger:   logger,
	}

	m := otel.Meter(meterName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"feed.queue.size",
		metric.WithDescription("Current number of messages waiting in a topic queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for topic, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("topic", topic)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"feed.messages.processed",
		metric.WithDescription("Total feed messages processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"feed.messages.dropped",
		metric.WithDescription("Total feed messages dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given topic with optional configuration.
func (d *Dispatcher) Register(topic string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(topic, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(topic, cfg.bufferSize, cfg.blocking, handler)
	}

	d.handlers[topic] = handler
}

// Dispatch routes a message to the handler for its topic, falling back to
// the AnyTopic handler.
func (d *Dispatcher) Dispatch(m feed.Message) error {
	h, ok := d.handlers[m.Topic]
	if !ok {
		h, ok = d.handlers[AnyTopic]
	}
	if !ok {
		return fmt.Errorf("unknown topic: %s", m.Topic)
	}
	return h(m)
}

// HasHandler returns true if a handler is registered for the topic.
func (d *Dispatcher) HasHandler(topic string) bool {
	_, ok := d.handlers[topic]
	return ok
}

// Close stops accepting buffered messages and waits for queued ones to be handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(topic string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan feed.Message, size)

	d.mu.Lock()
	d.buffers[topic] = buffer
	d.mu.Unlock()

	topicAttr := attribute.String("topic", topic)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for m := range buffer {
			_ = h(m)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(topicAttr))
		}
	}()

	if blocking {
		return func(m feed.Message) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			if d.closed {
				return fmt.Errorf("dispatcher closed: %s", topic)
			}
			buffer <- m
			return nil
		}
	}

	return func(m feed.Message) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return fmt.Errorf("dispatcher closed: %s", topic)
		}
		select {
		case buffer <- m:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(topicAttr))
			return fmt.Errorf("%w: %s", ErrQueueFull, topic)
		}
	}
}

func (d *Dispatcher) withLogging(topic string, h HandlerFunc) HandlerFunc {
	return func(m feed.Message) error {
		start := time.Now()
		d.logger.Debug("handling message", "topic", topic, "bytes", len(m.Payload))

		err := h(m)

		switch {
		case errors.Is(err, feed.ErrMalformedRecord):
			// the handler already reported the record
			d.logger.Debug("message rejected", "topic", topic, "duration", time.Since(start), "error", err)
		case err != nil:
			d.logger.Error("message failed", "topic", topic, "duration", time.Since(start), "error", err)
		default:
			d.logger.Debug("message complete", "topic", topic, "duration", time.Since(start))
		}

		return err
	}
}
