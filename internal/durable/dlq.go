// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package durable

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tagora/engine/internal/metrics"
	"github.com/tagora/engine/internal/models"
)

// DLQEntry is one event that failed to reach the durable tier and is
// awaiting retry.
type DLQEntry struct {
	Event         models.EncodedEvent
	Action        models.Action
	OriginalError string
	LastError     string
	RetryCount    int
	FirstFailure  time.Time
	LastFailure   time.Time
	NextRetry     time.Time
	Category      ErrorCategory
}

// newDLQEntry builds a DLQEntry for a just-failed publish/insert.
func newDLQEntry(event models.EncodedEvent, action models.Action, err error) *DLQEntry {
	now := time.Now()
	cat := ErrorCategoryUnknown
	var retryErr *RetryableError
	var permErr *PermanentError
	switch {
	case errors.As(err, &retryErr):
		cat = ErrorCategoryRetryable
	case errors.As(err, &permErr):
		cat = ErrorCategoryPermanent
	default:
		cat = categorizeErrorMessage(err.Error())
	}
	return &DLQEntry{
		Event:         event,
		Action:        action,
		OriginalError: err.Error(),
		LastError:     err.Error(),
		FirstFailure:  now,
		LastFailure:   now,
		NextRetry:     now,
		Category:      cat,
	}
}

// DLQStats holds runtime statistics for the dead letter queue.
type DLQStats struct {
	TotalEntries int
	TotalAdded   int64
	TotalRemoved int64
	TotalRetries int64
	TotalExpired int64
}

// RetryHandler attempts to redeliver one DLQ entry. A nil error means
// the entry should be removed from the queue.
type RetryHandler func(ctx context.Context, entry *DLQEntry) error

// DLQHandler is an in-memory, bounded dead letter queue for events that
// failed to reach the durable tier. Entries are keyed by insertion
// order; when the queue is full the oldest entry is evicted to make
// room for the newest failure, trading a lost audit record for bounded
// memory — the in-memory core's correctness never depends on this
// queue draining.
type DLQHandler struct {
	cfg DLQConfig

	mu      sync.Mutex
	order   []*DLQEntry // oldest first
	entries map[*DLQEntry]struct{}

	totalAdded   int64
	totalRemoved int64
	totalRetries int64
	totalExpired int64

	randMu sync.Mutex
	rng    *rand.Rand
}

// NewDLQHandler creates a dead letter queue handler.
func NewDLQHandler(cfg DLQConfig) (*DLQHandler, error) {
	if cfg.MaxRetries <= 0 {
		return nil, errors.New("durable: dlq max retries must be positive")
	}
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("durable: dlq max entries must be positive")
	}
	return &DLQHandler{
		cfg:     cfg,
		entries: make(map[*DLQEntry]struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Add enqueues a failed event for retry, evicting the oldest entry if
// the queue is at capacity.
func (h *DLQHandler) Add(event models.EncodedEvent, action models.Action, err error) *DLQEntry {
	entry := newDLQEntry(event, action, err)

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.order) >= h.cfg.MaxEntries {
		evicted := h.order[0]
		h.order = h.order[1:]
		delete(h.entries, evicted)
		h.totalExpired++
	}

	h.order = append(h.order, entry)
	h.entries[entry] = struct{}{}
	h.totalAdded++

	metrics.RecordDLQEntry()
	metrics.DLQEntriesTotal.Set(float64(len(h.order)))
	return entry
}

// Len returns the current number of queued entries.
func (h *DLQHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}

// Stats returns a snapshot of DLQ statistics.
func (h *DLQHandler) Stats() DLQStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return DLQStats{
		TotalEntries: len(h.order),
		TotalAdded:   h.totalAdded,
		TotalRemoved: h.totalRemoved,
		TotalRetries: h.totalRetries,
		TotalExpired: h.totalExpired,
	}
}

// dueEntries returns entries whose NextRetry has elapsed.
func (h *DLQHandler) dueEntries(now time.Time) []*DLQEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	due := make([]*DLQEntry, 0, len(h.order))
	for _, e := range h.order {
		if !e.NextRetry.After(now) {
			due = append(due, e)
		}
	}
	return due
}

func (h *DLQHandler) remove(entry *DLQEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.entries[entry]; !ok {
		return
	}
	delete(h.entries, entry)
	for i, e := range h.order {
		if e == entry {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.totalRemoved++
	metrics.RecordDLQRemoval()
	metrics.DLQEntriesTotal.Set(float64(len(h.order)))
}

// calculateBackoff returns the exponential backoff (with jitter) for
// the given retry count.
func (h *DLQHandler) calculateBackoff(retryCount int) time.Duration {
	backoff := float64(h.cfg.InitialBackoff) * math.Pow(2, float64(retryCount))
	if backoff > float64(h.cfg.MaxBackoff) {
		backoff = float64(h.cfg.MaxBackoff)
	}
	h.randMu.Lock()
	jitter := 1 + (h.rng.Float64()-0.5)*0.2
	h.randMu.Unlock()
	return time.Duration(backoff * jitter)
}

// AutoRetryWorker periodically retries entries in a DLQHandler. It
// implements suture.Service so internal/supervisor can run it as an
// independently restartable background service.
type AutoRetryWorker struct {
	dlq      *DLQHandler
	handler  RetryHandler
	interval time.Duration
}

// NewAutoRetryWorker creates a retry worker polling dlq every interval.
func NewAutoRetryWorker(dlq *DLQHandler, handler RetryHandler, interval time.Duration) *AutoRetryWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &AutoRetryWorker{dlq: dlq, handler: handler, interval: interval}
}

// Serve implements suture.Service.
func (w *AutoRetryWorker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.retryDue(ctx)
		}
	}
}

func (w *AutoRetryWorker) retryDue(ctx context.Context) {
	now := time.Now()
	for _, entry := range w.dlq.dueEntries(now) {
		w.dlq.totalRetries++

		err := w.handler(ctx, entry)
		if err == nil {
			metrics.RecordDLQRetry(true)
			w.dlq.remove(entry)
			continue
		}
		metrics.RecordDLQRetry(false)

		entry.RetryCount++
		entry.LastError = err.Error()
		entry.LastFailure = now

		if IsPermanentError(err) || entry.RetryCount >= w.dlq.cfg.MaxRetries {
			w.dlq.remove(entry)
			continue
		}
		entry.NextRetry = now.Add(w.dlq.calculateBackoff(entry.RetryCount))
	}
}

func (w *AutoRetryWorker) String() string { return "dlq-retry-loop" }
