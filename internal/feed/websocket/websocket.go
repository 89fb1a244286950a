// Package websocket implements a feed.Source that reads position records
// from a WebSocket endpoint.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/acetools/acemap/internal/feed"
	ws "github.com/gorilla/websocket"
)

const (
	defaultMaxReconnect = 10
	defaultMaxBackoff   = 30 * time.Second
	defaultBackoff      = time.Second
	readLimit           = 1 << 20
)

// Config holds connection settings. Zero backoff values use the defaults.
type Config struct {
	URL            string
	Topic          string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnect   int
}

// Source reads text or binary frames from a WebSocket server. Each frame
// is one message. The topic is sent as a query parameter on dial.
type Source struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	done   chan struct{}
}

// New creates a Source. Nothing is dialled until Run.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = defaultMaxReconnect
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// feedURL is the configured URL with the topic query param.
func (s *Source) feedURL() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	if s.cfg.Topic != "" {
		q := u.Query()
		q.Set("topic", s.cfg.Topic)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// dialOnce performs a single WebSocket dial.
func (s *Source) dialOnce(ctx context.Context) (*ws.Conn, error) {
	target, err := s.feedURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := ws.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// Run dials the server and reads until ctx is cancelled, Close is called,
// or reconnecting fails MaxReconnect times in a row. A failed first dial
// backs off and retries the same way as a dropped connection.
func (s *Source) Run(ctx context.Context, handle func(feed.Message)) error {
	if _, err := s.feedURL(); err != nil {
		return err
	}

	conn, err := s.dialOnce(ctx)
	if err != nil {
		if s.stopped(ctx) {
			return nil
		}
		s.logger.Warn("WebSocket feed not reachable, retrying", "url", s.cfg.URL, "error", err)
		conn, err = s.reconnect(ctx)
		if err != nil {
			if s.stopped(ctx) {
				return nil
			}
			return err
		}
	} else if !s.setConn(conn) {
		return nil
	}
	s.logger.Info("Connected to WebSocket feed", "url", s.cfg.URL, "topic", s.cfg.Topic)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.dropConn()
		case <-s.done:
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.stopped(ctx) {
				return nil
			}
			s.logger.Warn("WebSocket read error", "error", err)
			conn, err = s.reconnect(ctx)
			if err != nil {
				if s.stopped(ctx) {
					return nil
				}
				return err
			}
			continue
		}

		handle(feed.Message{Topic: s.cfg.Topic, Payload: data, Received: time.Now()})
	}
}

// reconnect re-dials with exponential backoff.
func (s *Source) reconnect(ctx context.Context) (*ws.Conn, error) {
	s.dropConn()

	backoff := s.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxReconnect; attempt++ {
		s.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-s.done:
			timer.Stop()
			return nil, errClosed
		case <-timer.C:
		}

		conn, err := s.dialOnce(ctx)
		if err != nil {
			lastErr = err
			s.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > s.cfg.MaxBackoff {
				backoff = s.cfg.MaxBackoff
			}
			continue
		}

		if !s.setConn(conn) {
			return nil, errClosed
		}
		s.logger.Info("Reconnected to WebSocket", "attempt", attempt)
		return conn, nil
	}

	return nil, fmt.Errorf("websocket reconnect failed after %d attempts: %w", s.cfg.MaxReconnect, lastErr)
}

var errClosed = errors.New("websocket source closed")

// setConn installs conn unless the source is closed, in which case conn is closed.
func (s *Source) setConn(conn *ws.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return false
	}
	s.conn = conn
	return true
}

func (s *Source) dropConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Source) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops Run and closes the connection. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}
