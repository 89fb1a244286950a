package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/internal/queue"
	"gorm.io/gorm"
)

// ErrSampleQueueFull is returned by SampleWriter.Add when the queue is at capacity.
var ErrSampleQueueFull = errors.New("sample queue full")

const sampleBatchSize = 500

// SampleWriter queues position samples and inserts them in batches.
type SampleWriter struct {
	db     *gorm.DB
	queue  *queue.Queue[model.PositionSample]
	logger *slog.Logger
}

// NewSampleWriter creates a writer holding at most limit unflushed samples.
func NewSampleWriter(db *gorm.DB, limit int, logger *slog.Logger) *SampleWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SampleWriter{
		db:     db,
		queue:  queue.New[model.PositionSample](limit),
		logger: logger,
	}
}

// Add queues one sample.
func (w *SampleWriter) Add(s model.PositionSample) error {
	if w.queue.Push(s) == 0 {
		return ErrSampleQueueFull
	}
	return nil
}

// Pending returns the number of queued samples.
func (w *SampleWriter) Pending() int {
	return w.queue.Len()
}

// Flush inserts everything queued so far in one transaction. On failure
// the batch goes back to the head of the queue for the next flush; samples
// that no longer fit under the limit are dropped and logged.
func (w *SampleWriter) Flush() (int, error) {
	batch := w.queue.Drain(0)
	if len(batch) == 0 {
		return 0, nil
	}
	start := time.Now()
	err := w.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(batch, sampleBatchSize).Error
	})
	if err != nil {
		// ids assigned before the rollback are not real
		for i := range batch {
			batch[i].ID = 0
		}
		if kept := w.queue.PushFront(batch...); kept < len(batch) {
			w.logger.Warn("Dropped position samples after failed insert", "count", len(batch)-kept)
		}
		return 0, fmt.Errorf("insert position samples: %w", err)
	}
	w.logger.Debug("Wrote position samples", "count", len(batch), "duration", time.Since(start))
	return len(batch), nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (w *SampleWriter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := w.Flush(); err != nil {
				w.logger.Error("Final sample flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if _, err := w.Flush(); err != nil {
				w.logger.Error("Sample flush failed", "error", err)
			}
		}
	}
}
