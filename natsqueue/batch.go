package natsqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/velmie/stockrelay"
)

type publication struct {
	subject string
	fields  []stockrelay.Field
}

// batch stages publications and acknowledgments. JetStream has no multi-message transaction,
// so Commit publishes first and acknowledges afterwards; a crash in between duplicates rather than loses.
type batch struct {
	queue   *Queue
	msgs    []stockrelay.Message
	raw     map[string]*nats.Msg
	pubs    []publication
	settle  []string
	settled map[string]struct{}
}

// Messages returns the messages fetched for this batch.
func (b *batch) Messages() []stockrelay.Message {
	return b.msgs
}

// Ack stages acknowledgment of delivered messages.
func (b *batch) Ack(_ context.Context, msgs []stockrelay.Message) error {
	for _, msg := range msgs {
		if err := b.stageSettle(msg.ID); err != nil {
			return err
		}
	}

	return nil
}

// Fail stages a republish with an incremented retry counter and acknowledgment of the original.
func (b *batch) Fail(_ context.Context, failures []stockrelay.Failure) error {
	for _, f := range failures {
		if err := b.stageSettle(f.Message.ID); err != nil {
			return err
		}
		b.pubs = append(b.pubs, publication{subject: b.queue.cfg.Subject, fields: f.Message.Retried().Fields()})
	}

	return nil
}

// Dead stages a dead-letter publication and acknowledgment of the original.
func (b *batch) Dead(_ context.Context, failures []stockrelay.Failure) error {
	now := b.queue.cfg.Clock.Now()
	for _, f := range failures {
		if err := b.stageSettle(f.Message.ID); err != nil {
			return err
		}
		dl := stockrelay.DeadLetter{Message: f.Message, Payload: f.Payload, Err: errText(f.Err), FailedAt: now}
		b.pubs = append(b.pubs, publication{subject: b.queue.cfg.DeadLetterSubject, fields: dl.Fields()})
	}

	return nil
}

// Commit publishes staged messages, then acknowledges the settled originals.
func (b *batch) Commit(ctx context.Context) error {
	for len(b.pubs) > 0 {
		p := b.pubs[0]
		if _, err := b.queue.publish(ctx, p.subject, p.fields); err != nil {
			return err
		}
		b.pubs = b.pubs[1:]
	}

	if b.settled == nil {
		b.settled = make(map[string]struct{}, len(b.settle))
	}
	for _, id := range b.settle {
		if err := b.raw[id].AckSync(nats.Context(ctx)); err != nil {
			return fmt.Errorf("stockrelay nats: ack %s failed: %w", id, err)
		}
		b.settled[id] = struct{}{}
	}
	b.settle = nil

	return nil
}

// Rollback drops staged work and negatively acknowledges unsettled messages for prompt redelivery.
func (b *batch) Rollback() error {
	b.pubs = nil
	b.settle = nil

	var errs []error
	for id, m := range b.raw {
		if _, ok := b.settled[id]; ok {
			continue
		}
		if err := m.Nak(); err != nil && !errors.Is(err, nats.ErrMsgAlreadyAckd) {
			errs = append(errs, fmt.Errorf("stockrelay nats: nak %s failed: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

func (b *batch) stageSettle(id string) error {
	if _, ok := b.raw[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, id)
	}
	b.settle = append(b.settle, id)

	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
