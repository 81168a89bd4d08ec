package stockrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// FailureHandler is called when forwarding a message returns an error.
type FailureHandler func(ctx context.Context, msg Message, err error)

// Relay drains a Consumer, forwards each message through a Handler and settles the outcome.
type Relay struct {
	consumer Consumer
	handler  Handler
	state    StateStore
	cfg      RelayConfig

	pendingMu sync.Mutex
	pendingAt time.Time
}

type batchOutcome struct {
	delivered []Message
	failed    []Failure
	dead      []Failure
}

// NewRelay constructs a Relay with defaults and optional settings.
func NewRelay(consumer Consumer, handler Handler, state StateStore, opts ...RelayOption) *Relay {
	if consumer == nil {
		panic("stockrelay: nil Consumer")
	}
	if handler == nil {
		panic("stockrelay: nil Handler")
	}
	if state == nil {
		panic("stockrelay: nil StateStore")
	}

	var cfg RelayConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	return &Relay{
		consumer: consumer,
		handler:  handler,
		state:    state,
		cfg:      cfg,
	}
}

// Run starts the read loop with the configured number of workers.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, r.cfg.Workers)
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		workerID := i
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("%w: %v", ErrWorkerPanic, rec)
					r.cfg.Logger.Error("stockrelay worker panic", "worker", workerID, "panic", rec)
					errCh <- err
					cancel()
				}
			}()

			if err := r.runWorker(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.cfg.Logger.Error("stockrelay worker error", "worker", workerID, "err", err)
				errCh <- err
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// ProcessOnce fetches and processes a single batch. It reports whether a batch was processed.
func (r *Relay) ProcessOnce(ctx context.Context) (bool, error) {
	batch, err := r.fetchBatch(ctx)
	if err != nil {
		if errors.Is(err, ErrNoMessages) {
			r.maybeRecordPending(ctx)

			return false, nil
		}

		return false, err
	}

	if err := r.processBatch(ctx, batch); err != nil {
		return false, err
	}

	return true, nil
}

// ReclaimOnce claims messages abandoned by crashed consumers and processes them as one batch.
// Consumers that do not implement Reclaimer are skipped.
func (r *Relay) ReclaimOnce(ctx context.Context) (bool, error) {
	reclaimer, ok := r.consumer.(Reclaimer)
	if !ok {
		return false, nil
	}

	batch, err := reclaimer.Reclaim(ctx, ReclaimOptions{BatchSize: r.cfg.BatchSize, MinIdle: r.cfg.ReclaimIdle})
	if err != nil {
		if errors.Is(err, ErrNoMessages) {
			return false, nil
		}

		return false, err
	}
	if batch != nil {
		r.cfg.Logger.Info("stockrelay reclaimed pending messages", "count", len(batch.Messages()))
	}

	if err := r.processBatch(ctx, batch); err != nil {
		return false, err
	}

	return true, nil
}

func (r *Relay) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := r.fetchBatch(ctx)
		if errors.Is(err, ErrNoMessages) {
			r.maybeRecordPending(ctx)
			if sleepErr := r.sleep(ctx, r.cfg.PollInterval); sleepErr != nil {
				return sleepErr
			}

			continue
		}
		if err == nil {
			err = r.processBatch(ctx, batch)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The failed batch stays pending and is read again.
			r.cfg.Logger.Warn("stockrelay worker backing off", "err", err, "backoff", r.cfg.ErrorBackoff)
			if sleepErr := r.sleep(ctx, r.cfg.ErrorBackoff); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

func (r *Relay) fetchBatch(ctx context.Context) (Batch, error) {
	return r.consumer.Fetch(ctx, FetchOptions{BatchSize: r.cfg.BatchSize, Block: r.cfg.ReadBlock})
}

func (r *Relay) processBatch(ctx context.Context, batch Batch) error {
	start := time.Now()
	defer func() {
		r.cfg.Metrics.ObserveBatchDuration(time.Since(start))
	}()

	if batch == nil {
		return ErrNilBatch
	}

	msgs := batch.Messages()
	if len(msgs) == 0 {
		rollbackErr := batch.Rollback()

		return errors.Join(ErrEmptyBatch, rollbackErr)
	}

	outcome, err := r.collectBatchResults(ctx, msgs)
	if err != nil {
		return r.rollbackWith(batch, err)
	}

	return r.applyBatchResults(ctx, batch, outcome)
}

func (r *Relay) collectBatchResults(ctx context.Context, msgs []Message) (batchOutcome, error) {
	outcome := batchOutcome{
		delivered: make([]Message, 0, len(msgs)),
		failed:    make([]Failure, 0),
		dead:      make([]Failure, 0),
	}
	for _, msg := range msgs {
		stamped, err := r.deliver(ctx, msg)
		if err == nil {
			outcome.delivered = append(outcome.delivered, msg)

			continue
		}
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		r.recordFailure(ctx, msg, stamped, err, &outcome)
	}

	return outcome, nil
}

// deliver sends one attempt and commits the item state on success. Placeholders are
// rendered on a copy only, so msg keeps them for a later retry. The rendered body is
// returned for dead-letter records.
func (r *Relay) deliver(ctx context.Context, msg Message) (json.RawMessage, error) {
	attempt := msg
	attempt.Payload = StampPayload(msg.Payload, r.cfg.Clock.Now(), r.cfg.Location)

	if err := r.forward(ctx, attempt); err != nil {
		return attempt.Payload, err
	}
	if err := r.commitState(ctx, msg); err != nil {
		return attempt.Payload, err
	}

	return attempt.Payload, nil
}

func (r *Relay) forward(ctx context.Context, msg Message) error {
	handleCtx := ctx
	cancel := func() {}
	if r.cfg.HandlerTimeout > 0 {
		handleCtx, cancel = context.WithTimeout(ctx, r.cfg.HandlerTimeout)
	}
	defer cancel()

	return r.handler.Handle(handleCtx, msg)
}

func (r *Relay) commitState(ctx context.Context, msg Message) error {
	if msg.CacheKey == "" {
		return nil
	}
	if err := r.state.Set(ctx, msg.CacheKey, msg.CacheValue, r.cfg.CacheTTL); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	return nil
}

func (r *Relay) recordFailure(ctx context.Context, msg Message, payload json.RawMessage, err error, outcome *batchOutcome) {
	if r.cfg.ErrorHandler != nil {
		r.cfg.ErrorHandler(ctx, msg, err)
	}

	failure := Failure{Message: msg, Payload: payload, Err: err}
	if msg.RetryCount >= r.cfg.MaxRetry {
		failure.Err = fmt.Errorf("%w: %w", ErrRetryExhausted, err)
		outcome.dead = append(outcome.dead, failure)

		return
	}
	if r.cfg.FailureClassifier(ctx, msg, err) == FailureDead {
		outcome.dead = append(outcome.dead, failure)

		return
	}
	outcome.failed = append(outcome.failed, failure)
}

func (r *Relay) applyBatchResults(ctx context.Context, batch Batch, outcome batchOutcome) error {
	if err := r.settle(ctx, batch, outcome); err != nil {
		return r.rollbackWith(batch, err)
	}
	r.report(ctx, outcome)

	return nil
}

// settle stages every transition of the batch and commits them together.
func (r *Relay) settle(ctx context.Context, batch Batch, outcome batchOutcome) error {
	if len(outcome.delivered) > 0 {
		if err := batch.Ack(ctx, outcome.delivered); err != nil {
			return fmt.Errorf("stockrelay ack failed: %w", err)
		}
	}
	if len(outcome.failed) > 0 {
		if err := batch.Fail(ctx, outcome.failed); err != nil {
			return fmt.Errorf("stockrelay retry append failed: %w", err)
		}
	}
	if len(outcome.dead) > 0 {
		if err := batch.Dead(ctx, outcome.dead); err != nil {
			return fmt.Errorf("stockrelay dead-letter append failed: %w", err)
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("stockrelay commit failed: %w", err)
	}

	return nil
}

// report runs after a successful commit.
func (r *Relay) report(ctx context.Context, outcome batchOutcome) {
	r.cfg.Metrics.AddForwarded(len(outcome.delivered))
	r.cfg.Metrics.AddErrors(len(outcome.failed) + len(outcome.dead))
	r.cfg.Metrics.AddRetries(len(outcome.failed))
	r.cfg.Metrics.AddDead(len(outcome.dead))

	for _, msg := range outcome.delivered {
		r.cfg.Logger.Debug("stockrelay forwarded", "supplier", msg.SupplierID, "sku", msg.Identifier)
		r.audit(ctx, AuditEntry{SupplierID: msg.SupplierID, Identifier: msg.Identifier, Status: StatusSuccess})
	}
	for _, f := range outcome.failed {
		r.cfg.Logger.Warn("stockrelay delivery failed, re-queued",
			"supplier", f.Message.SupplierID, "sku", f.Message.Identifier,
			"retry", f.Message.RetryCount+1, "max_retry", r.cfg.MaxRetry, "err", f.Err)
	}
	for _, f := range outcome.dead {
		r.cfg.Logger.Error("stockrelay message dead-lettered",
			"supplier", f.Message.SupplierID, "sku", f.Message.Identifier,
			"retry", f.Message.RetryCount, "err", f.Err)
		r.audit(ctx, AuditEntry{
			SupplierID: f.Message.SupplierID,
			Identifier: f.Message.Identifier,
			Status:     StatusError,
			Message:    f.Err.Error(),
		})
	}
}

func (r *Relay) audit(ctx context.Context, entry AuditEntry) {
	if r.cfg.Audit == nil {
		return
	}
	if err := r.cfg.Audit.Append(ctx, entry); err != nil {
		r.cfg.Logger.Warn("stockrelay audit append failed", "supplier", entry.SupplierID, "sku", entry.Identifier, "err", err)
	}
}

func (r *Relay) rollbackWith(batch Batch, err error) error {
	rollbackErr := batch.Rollback()
	if rollbackErr == nil {
		return err
	}

	return errors.Join(err, fmt.Errorf("stockrelay rollback failed: %w", rollbackErr))
}

func (r *Relay) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Relay) maybeRecordPending(ctx context.Context) {
	counter, ok := r.consumer.(PendingCounter)
	if !ok {
		return
	}
	if r.cfg.PendingInterval <= 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	now := r.cfg.Clock.Now()
	r.pendingMu.Lock()
	nextAllowed := r.pendingAt.Add(r.cfg.PendingInterval)
	if !r.pendingAt.IsZero() && now.Before(nextAllowed) {
		r.pendingMu.Unlock()

		return
	}
	r.pendingAt = now
	r.pendingMu.Unlock()

	count, err := counter.PendingCount(ctx)
	if err != nil {
		r.cfg.Logger.Warn("stockrelay pending count failed", "err", err)

		return
	}

	r.cfg.Metrics.SetPending(count)
}
