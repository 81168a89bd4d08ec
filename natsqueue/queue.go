package natsqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/velmie/stockrelay"
)

const defaultFetchWait = 5 * time.Second

// Queue implements the stockrelay queue on JetStream with a durable pull consumer.
type Queue struct {
	js  nats.JetStreamContext
	cfg Config

	mu  sync.Mutex
	sub *nats.Subscription
}

var _ stockrelay.Producer = (*Queue)(nil)
var _ stockrelay.Consumer = (*Queue)(nil)
var _ stockrelay.PendingCounter = (*Queue)(nil)

// NewQueue constructs a JetStream queue with validated configuration.
func NewQueue(nc *nats.Conn, opts ...Option) (*Queue, error) {
	if nc == nil {
		return nil, ErrConnRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("stockrelay nats: jetstream context failed: %w", err)
	}

	return &Queue{js: js, cfg: cfg}, nil
}

// EnsureStreams creates the work and dead-letter streams when missing.
func (q *Queue) EnsureStreams(ctx context.Context) error {
	streams := []nats.StreamConfig{
		{Name: q.cfg.Stream, Subjects: []string{q.cfg.Subject}, Retention: nats.WorkQueuePolicy, Storage: nats.FileStorage},
		{Name: q.cfg.DeadLetterStream, Subjects: []string{q.cfg.DeadLetterSubject}, Retention: nats.LimitsPolicy, Storage: nats.FileStorage},
	}
	for i := range streams {
		_, err := q.js.StreamInfo(streams[i].Name, nats.Context(ctx))
		if err == nil {
			continue
		}
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("stockrelay nats: stream info %s failed: %w", streams[i].Name, err)
		}
		if _, err := q.js.AddStream(&streams[i], nats.Context(ctx)); err != nil {
			return fmt.Errorf("stockrelay nats: add stream %s failed: %w", streams[i].Name, err)
		}
		q.cfg.Logger.Info("stockrelay nats stream created", "stream", streams[i].Name)
	}

	return nil
}

// Enqueue publishes msg to the work subject and returns its stream sequence.
func (q *Queue) Enqueue(ctx context.Context, msg stockrelay.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = q.cfg.Clock.Now()
	}

	return q.publish(ctx, q.cfg.Subject, msg.Fields())
}

// Fetch pulls up to opts.BatchSize messages, waiting for at most opts.Block.
func (q *Queue) Fetch(ctx context.Context, opts stockrelay.FetchOptions) (stockrelay.Batch, error) {
	if opts.BatchSize <= 0 {
		return nil, stockrelay.ErrInvalidBatchSize
	}
	sub, err := q.subscription(ctx)
	if err != nil {
		return nil, err
	}

	wait := opts.Block
	if wait <= 0 {
		wait = defaultFetchWait
	}
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	raw, err := sub.Fetch(opts.BatchSize, nats.Context(fetchCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, stockrelay.ErrNoMessages
		}

		return nil, fmt.Errorf("stockrelay nats: fetch failed: %w", err)
	}

	return q.newBatch(ctx, raw)
}

// PendingCount returns messages not yet delivered plus messages awaiting acknowledgment.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	sub, err := q.subscription(ctx)
	if err != nil {
		return 0, err
	}
	info, err := sub.ConsumerInfo()
	if err != nil {
		return 0, fmt.Errorf("stockrelay nats: consumer info failed: %w", err)
	}

	return int(info.NumPending) + info.NumAckPending, nil
}

func (q *Queue) subscription(ctx context.Context) (*nats.Subscription, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sub != nil {
		return q.sub, nil
	}
	if err := q.EnsureStreams(ctx); err != nil {
		return nil, err
	}

	sub, err := q.js.PullSubscribe(q.cfg.Subject, q.cfg.Durable,
		nats.BindStream(q.cfg.Stream),
		nats.AckExplicit(),
		nats.AckWait(q.cfg.AckWait),
	)
	if err != nil {
		return nil, fmt.Errorf("stockrelay nats: pull subscribe failed: %w", err)
	}
	q.sub = sub

	return sub, nil
}

func (q *Queue) newBatch(ctx context.Context, raw []*nats.Msg) (stockrelay.Batch, error) {
	b := &batch{queue: q, raw: make(map[string]*nats.Msg, len(raw))}
	for _, m := range raw {
		id := messageID(m)
		msg, err := decodeMessage(id, m.Data)
		if err != nil {
			q.deadLetterMalformed(ctx, id, m, err)

			continue
		}
		b.msgs = append(b.msgs, msg)
		b.raw[id] = m
	}
	if len(b.msgs) == 0 {
		return nil, stockrelay.ErrNoMessages
	}

	return b, nil
}

func (q *Queue) deadLetterMalformed(ctx context.Context, id string, m *nats.Msg, cause error) {
	q.cfg.Logger.Error("stockrelay nats malformed message dead-lettered", "id", id, "err", cause)

	fields := []stockrelay.Field{{Name: stockrelay.FieldPayload, Value: string(m.Data)}}
	if decoded, err := decodeFields(m.Data); err == nil {
		fields = fields[:0]
		for name, value := range decoded {
			fields = append(fields, stockrelay.Field{Name: name, Value: value})
		}
	}
	fields = append(fields,
		stockrelay.Field{Name: stockrelay.FieldError, Value: cause.Error()},
		stockrelay.Field{Name: stockrelay.FieldFailedAt, Value: q.cfg.Clock.Now().UTC().Format(time.RFC3339Nano)},
	)
	if _, err := q.publish(ctx, q.cfg.DeadLetterSubject, fields); err != nil {
		q.cfg.Logger.Error("stockrelay nats dead-letter publish failed", "id", id, "err", err)
		_ = m.Nak()

		return
	}
	if err := m.Term(); err != nil {
		q.cfg.Logger.Warn("stockrelay nats term failed", "id", id, "err", err)
	}
}

func (q *Queue) publish(ctx context.Context, subject string, fields []stockrelay.Field) (string, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	ack, err := q.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("stockrelay nats: publish %s failed: %w", subject, err)
	}

	return strconv.FormatUint(ack.Sequence, 10), nil
}

func messageID(m *nats.Msg) string {
	meta, err := m.Metadata()
	if err != nil {
		return ""
	}

	return strconv.FormatUint(meta.Sequence.Stream, 10)
}
