package stockrelay

import (
	"sync/atomic"
	"time"
)

// Logger provides structured logging hooks.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)
	// Info logs an informational message.
	Info(msg string, args ...any)
	// Warn logs a warning message.
	Warn(msg string, args ...any)
	// Error logs an error message.
	Error(msg string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}

// Metrics captures relay-level telemetry.
type Metrics interface {
	// ObserveBatchDuration records the time to process a batch.
	ObserveBatchDuration(duration time.Duration)
	// AddForwarded increments the count of acknowledged messages.
	AddForwarded(count int)
	// AddErrors increments the count of failed deliveries.
	AddErrors(count int)
	// AddRetries increments the count of re-queued messages.
	AddRetries(count int)
	// AddDead increments the count of dead-lettered messages.
	AddDead(count int)
	// SetPending updates the current backlog.
	SetPending(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveBatchDuration implements Metrics.
func (NopMetrics) ObserveBatchDuration(time.Duration) {}

// AddForwarded implements Metrics.
func (NopMetrics) AddForwarded(int) {}

// AddErrors implements Metrics.
func (NopMetrics) AddErrors(int) {}

// AddRetries implements Metrics.
func (NopMetrics) AddRetries(int) {}

// AddDead implements Metrics.
func (NopMetrics) AddDead(int) {}

// SetPending implements Metrics.
func (NopMetrics) SetPending(int) {}

// AtomicMetrics keeps in-process counters that can be sampled with Snapshot.
type AtomicMetrics struct {
	batches   atomic.Int64
	batchNano atomic.Int64
	forwarded atomic.Int64
	errors    atomic.Int64
	retries   atomic.Int64
	dead      atomic.Int64
	pending   atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of AtomicMetrics.
type MetricsSnapshot struct {
	Batches       int64
	BatchDuration time.Duration
	Forwarded     int64
	Errors        int64
	Retries       int64
	Dead          int64
	Pending       int64
}

// ObserveBatchDuration implements Metrics.
func (m *AtomicMetrics) ObserveBatchDuration(d time.Duration) {
	m.batches.Add(1)
	m.batchNano.Add(int64(d))
}

// AddForwarded implements Metrics.
func (m *AtomicMetrics) AddForwarded(count int) { m.forwarded.Add(int64(count)) }

// AddErrors implements Metrics.
func (m *AtomicMetrics) AddErrors(count int) { m.errors.Add(int64(count)) }

// AddRetries implements Metrics.
func (m *AtomicMetrics) AddRetries(count int) { m.retries.Add(int64(count)) }

// AddDead implements Metrics.
func (m *AtomicMetrics) AddDead(count int) { m.dead.Add(int64(count)) }

// SetPending implements Metrics.
func (m *AtomicMetrics) SetPending(count int) { m.pending.Store(int64(count)) }

// Snapshot returns the current counter values.
func (m *AtomicMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Batches:       m.batches.Load(),
		BatchDuration: time.Duration(m.batchNano.Load()),
		Forwarded:     m.forwarded.Load(),
		Errors:        m.errors.Load(),
		Retries:       m.retries.Load(),
		Dead:          m.dead.Load(),
		Pending:       m.pending.Load(),
	}
}
