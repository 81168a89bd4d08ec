package stockrelay

import (
	"context"
	"time"
)

// FetchOptions controls how messages are read from the queue.
type FetchOptions struct {
	BatchSize int
	// Block bounds how long a read waits for new messages before returning ErrNoMessages.
	Block time.Duration
}

// ReclaimOptions controls how messages abandoned by crashed consumers are claimed.
type ReclaimOptions struct {
	BatchSize int
	// MinIdle is the minimum time a message must have been pending without acknowledgment.
	MinIdle time.Duration
}

// Producer appends new messages to the queue.
type Producer interface {
	// Enqueue appends msg and returns the backend-assigned id.
	Enqueue(ctx context.Context, msg Message) (string, error)
}

// Consumer reads messages as a member of a consumer group.
type Consumer interface {
	// Fetch returns a batch of messages claimed by this consumer, or ErrNoMessages after the block timeout.
	Fetch(ctx context.Context, opts FetchOptions) (Batch, error)
}

// Batch is a set of claimed messages whose settlement is staged and applied on Commit.
type Batch interface {
	// Messages returns the claimed messages.
	Messages() []Message
	// Ack stages acknowledgment (removal) of delivered messages.
	Ack(ctx context.Context, msgs []Message) error
	// Fail stages a re-append of each message with an incremented retry counter and acknowledges the original.
	Fail(ctx context.Context, failures []Failure) error
	// Dead stages a dead-letter record for each failure and acknowledges the original.
	Dead(ctx context.Context, failures []Failure) error
	// Commit applies the staged changes.
	Commit(ctx context.Context) error
	// Rollback discards staged changes, leaving messages pending for re-delivery.
	Rollback() error
}

// Reclaimer claims messages left pending by other consumers for longer than opts.MinIdle.
type Reclaimer interface {
	// Reclaim returns a batch of claimed messages or ErrNoMessages.
	Reclaim(ctx context.Context, opts ReclaimOptions) (Batch, error)
}

// PendingCounter provides the number of messages not yet settled.
type PendingCounter interface {
	// PendingCount returns the current queue backlog.
	PendingCount(ctx context.Context) (int, error)
}
