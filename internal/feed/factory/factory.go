// Package factory builds the configured feed.Source.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/acetools/acemap/internal/config"
	"github.com/acetools/acemap/internal/feed"
	"github.com/acetools/acemap/internal/feed/mqtt"
	"github.com/acetools/acemap/internal/feed/websocket"
)

// New creates a feed source based on configuration.
func New(cfg config.FeedConfig, logger *slog.Logger) (feed.Source, error) {
	switch cfg.Type {
	case "websocket", "":
		return websocket.New(websocket.Config{URL: cfg.URL, Topic: cfg.Topic}, logger), nil
	case "mqtt":
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return nil, fmt.Errorf("invalid mqtt qos: %d", cfg.MQTT.QoS)
		}
		return mqtt.New(mqtt.Config{
			Broker:     cfg.MQTT.Broker,
			Port:       cfg.MQTT.Port,
			ClientID:   cfg.MQTT.ClientID,
			Topic:      cfg.Topic,
			QoS:        byte(cfg.MQTT.QoS),
			BufferSize: cfg.BufferSize,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown feed type: %s", cfg.Type)
	}
}
