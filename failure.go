package stockrelay

import (
	"context"
	"errors"
)

// FailureAction defines how a failed message should be handled.
type FailureAction int

const (
	// FailureRetry re-queues the message while the retry budget allows.
	FailureRetry FailureAction = iota
	// FailureDead dead-letters the message immediately.
	FailureDead
)

// FailureClassifier decides whether a failure is retryable.
type FailureClassifier func(ctx context.Context, msg Message, err error) FailureAction

// RetryAll treats every failure as retryable, so only the retry bound dead-letters.
func RetryAll(context.Context, Message, error) FailureAction {
	return FailureRetry
}

// DeadOnPermanentRejection dead-letters rejections marked with ErrPermanentRejection
// and retries everything else.
func DeadOnPermanentRejection(_ context.Context, _ Message, err error) FailureAction {
	if errors.Is(err, ErrPermanentRejection) {
		return FailureDead
	}

	return FailureRetry
}
