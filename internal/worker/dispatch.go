package worker

import (
	"fmt"

	"github.com/acetools/acemap/internal/dispatcher"
)

// RegisterHandlers registers the record handler for topic. An empty topic
// registers it for every topic. bufferSize <= 0 handles messages inline.
// A topic that already has a handler is rejected.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher, topic string, bufferSize int) error {
	if topic == "" {
		topic = dispatcher.AnyTopic
	}
	if d.HasHandler(topic) {
		return fmt.Errorf("handler already registered for topic %q", topic)
	}

	opts := []dispatcher.Option{dispatcher.Logged()}
	if bufferSize > 0 {
		// positions are cheap to handle; drop rather than stall the source
		opts = append(opts, dispatcher.Buffered(bufferSize))
	}
	d.Register(topic, m.HandleMessage, opts...)
	return nil
}
