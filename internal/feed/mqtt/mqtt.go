// Package mqtt implements a feed.Source backed by an MQTT broker
// subscription.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acetools/acemap/internal/feed"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultBufferSize = 1000
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// Config holds broker settings.
type Config struct {
	Broker     string
	Port       int
	ClientID   string
	Topic      string
	QoS        byte
	BufferSize int
}

// Source subscribes to one topic. The paho client delivers messages on its
// own goroutines; they are queued in a buffered channel that Run drains.
// Messages arriving while the buffer is full are dropped.
type Source struct {
	cfg    Config
	client pahomqtt.Client
	msgs   chan feed.Message
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Source with auto-reconnect enabled. The subscription is
// renewed on every (re)connect.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{
		cfg:    cfg,
		msgs:   make(chan feed.Message, cfg.BufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(cfg.Broker, cfg.Port))
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("acemap-%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(s.onConnectionLost)

	s.client = pahomqtt.NewClient(opts)
	return s
}

// BrokerURL formats a tcp broker address.
func BrokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

func (s *Source) onConnect(client pahomqtt.Client) {
	s.logger.Info("Connected to MQTT broker, subscribing", "topic", s.cfg.Topic)

	token := client.Subscribe(s.cfg.Topic, s.cfg.QoS, s.messageHandler)
	if token.Wait() && token.Error() != nil {
		s.logger.Error("Failed to subscribe", "topic", s.cfg.Topic, "error", token.Error())
	}
}

func (s *Source) onConnectionLost(_ pahomqtt.Client, err error) {
	s.logger.Warn("MQTT connection lost, will attempt to reconnect", "error", err)
}

func (s *Source) messageHandler(_ pahomqtt.Client, msg pahomqtt.Message) {
	s.push(msg.Topic(), msg.Payload())
}

// push queues a message without blocking the paho callback.
func (s *Source) push(topic string, payload []byte) {
	m := feed.Message{Topic: topic, Payload: payload, Received: time.Now()}
	select {
	case s.msgs <- m:
	default:
		s.logger.Warn("MQTT message buffer full, dropping message", "topic", topic)
	}
}

// Run connects to the broker and delivers queued messages until ctx is
// cancelled or Close is called.
func (s *Source) Run(ctx context.Context, handle func(feed.Message)) error {
	s.logger.Info("Connecting to MQTT broker", "broker", BrokerURL(s.cfg.Broker, s.cfg.Port))

	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("failed to connect to MQTT broker: timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	defer s.disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case m := <-s.msgs:
			handle(m)
		}
	}
}

func (s *Source) disconnect() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic)
		s.client.Disconnect(disconnectQuiesce)
	}
}

// Close stops Run. Safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
