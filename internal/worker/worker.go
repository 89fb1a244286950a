package worker

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/acetools/acemap/internal/feed"
	"github.com/acetools/acemap/internal/geo"
	"github.com/acetools/acemap/internal/logging"
	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/internal/model/convert"
	"github.com/acetools/acemap/internal/poi"
	"github.com/acetools/acemap/pkg/core"
)

// PointWriter receives every decoded record, e.g. the InfluxDB manager.
type PointWriter interface {
	WriteRecord(topic string, r core.Record, ts time.Time) error
}

// SampleSink persists position samples.
type SampleSink interface {
	Add(model.PositionSample) error
}

// Dependencies holds all dependencies for the worker manager.
// Everything except LogManager is optional.
type Dependencies struct {
	LogManager *logging.SlogManager
	Points     PointWriter
	Samples    SampleSink
	POIs       *poi.Index
}

// Stats counts handled messages.
type Stats struct {
	Processed uint64
	Failed    uint64
	Indoor    uint64
}

// Manager turns feed messages into labelled positions.
type Manager struct {
	deps Dependencies

	processed atomic.Uint64
	failed    atomic.Uint64
	indoor    atomic.Uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	return &Manager{deps: deps}
}

func (m *Manager) logger() *slog.Logger {
	if m.deps.LogManager == nil {
		return slog.Default()
	}
	return m.deps.LogManager.Logger()
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Processed: m.processed.Load(),
		Failed:    m.failed.Load(),
		Indoor:    m.indoor.Load(),
	}
}

// HandleMessage decodes one record, labels it and fans it out to the
// configured writers. Writer failures are logged and do not fail the message.
func (m *Manager) HandleMessage(msg feed.Message) error {
	log := m.logger()

	rec, err := feed.DecodeRecord(msg.Payload)
	if err != nil {
		m.failed.Add(1)
		log.Warn("Dropping record", "topic", msg.Topic, "error", err)
		return fmt.Errorf("decode record: %w", err)
	}

	received := msg.Received
	if received.IsZero() {
		received = time.Now()
	}

	indoor := geo.IsIndoor(rec.LocationID)
	cx, cy := geo.CellCoords(rec.LocationID)
	label := geo.FormatMapCoordinate(geo.ToMapCoordinate(geo.ResolveRecord(rec)))

	log.Info("Position",
		"topic", msg.Topic,
		"locationId", fmt.Sprintf("0x%08X", uint32(rec.LocationID)),
		"cell", fmt.Sprintf("%02X%02X", cx, cy),
		"indoor", indoor,
		"label", label,
	)

	if m.deps.Points != nil {
		if err := m.deps.Points.WriteRecord(msg.Topic, rec, received); err != nil {
			log.Error("Failed to write point", "error", err)
		}
	}

	if m.deps.Samples != nil {
		if err := m.deps.Samples.Add(convert.RecordToSample(rec, msg.Topic, received, msg.Payload)); err != nil {
			log.Error("Failed to queue sample", "error", err)
		}
	}

	if indoor {
		m.indoor.Add(1)
	} else if m.deps.POIs != nil {
		if p, d, err := m.deps.POIs.Nearest(rec); err == nil {
			log.Info("Nearest POI", "name", p.Name, "distance", d, "label", geo.Label(p.LocationID, p.Origin))
		}
	}

	m.processed.Add(1)
	return nil
}
