package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/velmie/stockrelay"
)

// Pool hands out Redis connections. *redis.Pool satisfies it.
type Pool interface {
	GetContext(ctx context.Context) (redis.Conn, error)
}

// Queue implements the stockrelay queue on a Redis stream with a consumer group.
type Queue struct {
	pool Pool
	cfg  Config

	groupMu    sync.Mutex
	groupReady bool
}

var _ stockrelay.Producer = (*Queue)(nil)
var _ stockrelay.Consumer = (*Queue)(nil)
var _ stockrelay.Reclaimer = (*Queue)(nil)
var _ stockrelay.PendingCounter = (*Queue)(nil)

// NewQueue constructs a Redis stream queue with validated configuration.
func NewQueue(pool Pool, opts ...Option) (*Queue, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Queue{pool: pool, cfg: cfg}, nil
}

// MustNewQueue constructs a Redis stream queue or panics on error.
func MustNewQueue(pool Pool, opts ...Option) *Queue {
	q, err := NewQueue(pool, opts...)
	if err != nil {
		panic(err)
	}

	return q
}

// Consumer returns this queue's consumer name inside the group.
func (q *Queue) Consumer() string {
	return q.cfg.Consumer
}

// EnsureGroup creates the consumer group (and the stream) when missing.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	q.groupMu.Lock()
	defer q.groupMu.Unlock()

	if q.groupReady {
		return nil
	}

	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	_, err = do(ctx, conn, "XGROUP", "CREATE", q.cfg.Stream, q.cfg.Group, "0", "MKSTREAM")
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("stockrelay redis: create group failed: %w", err)
	}
	q.groupReady = true
	q.cfg.Logger.Info("stockrelay redis consumer group ready", "stream", q.cfg.Stream, "group", q.cfg.Group)

	return nil
}

// Enqueue appends msg to the stream and returns the assigned entry id.
func (q *Queue) Enqueue(ctx context.Context, msg stockrelay.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = q.cfg.Clock.Now()
	}

	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return "", fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	id, err := redis.String(do(ctx, conn, "XADD", xaddArgs(q.cfg.Stream, msg.Fields())...))
	if err != nil {
		return "", fmt.Errorf("stockrelay redis: xadd failed: %w", err)
	}

	return id, nil
}

// Fetch reads up to opts.BatchSize new entries for this consumer, blocking for at most opts.Block.
func (q *Queue) Fetch(ctx context.Context, opts stockrelay.FetchOptions) (stockrelay.Batch, error) {
	if opts.BatchSize <= 0 {
		return nil, stockrelay.ErrInvalidBatchSize
	}
	if err := q.EnsureGroup(ctx); err != nil {
		return nil, err
	}

	entries, err := q.readGroup(ctx, opts)
	if err != nil && isNoGroup(err) {
		q.cfg.Logger.Warn("stockrelay redis consumer group missing, recreating", "stream", q.cfg.Stream, "group", q.cfg.Group)
		q.resetGroup()
		if err := q.EnsureGroup(ctx); err != nil {
			return nil, err
		}
		entries, err = q.readGroup(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	return q.newBatch(ctx, entries)
}

// Reclaim claims entries that stayed pending for longer than opts.MinIdle.
func (q *Queue) Reclaim(ctx context.Context, opts stockrelay.ReclaimOptions) (stockrelay.Batch, error) {
	if opts.BatchSize <= 0 {
		return nil, stockrelay.ErrInvalidBatchSize
	}
	if err := q.EnsureGroup(ctx); err != nil {
		return nil, err
	}

	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	reply, err := do(ctx, conn, "XAUTOCLAIM", q.cfg.Stream, q.cfg.Group, q.cfg.Consumer,
		opts.MinIdle.Milliseconds(), "0-0", "COUNT", opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("stockrelay redis: xautoclaim failed: %w", err)
	}
	_, entries, err := parseAutoClaimReply(reply)
	if err != nil {
		return nil, err
	}

	return q.newBatch(ctx, entries)
}

// PendingCount returns the stream length, which is the number of unsettled messages.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	count, err := redis.Int(do(ctx, conn, "XLEN", q.cfg.Stream))
	if err != nil {
		return 0, fmt.Errorf("stockrelay redis: xlen failed: %w", err)
	}

	return count, nil
}

func (q *Queue) readGroup(ctx context.Context, opts stockrelay.FetchOptions) ([]entry, error) {
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	args := redis.Args{"GROUP", q.cfg.Group, q.cfg.Consumer, "COUNT", opts.BatchSize}
	if opts.Block > 0 {
		args = args.Add("BLOCK", opts.Block.Milliseconds())
	}
	args = args.Add("STREAMS", q.cfg.Stream, ">")

	reply, err := do(ctx, conn, "XREADGROUP", args...)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, nil
		}

		return nil, fmt.Errorf("stockrelay redis: xreadgroup failed: %w", err)
	}

	return parseReadReply(reply)
}

// newBatch decodes entries. Undecodable entries are dead-lettered right away so they never block the group.
func (q *Queue) newBatch(ctx context.Context, entries []entry) (stockrelay.Batch, error) {
	msgs := make([]stockrelay.Message, 0, len(entries))
	var malformed []entry
	var malformedErrs []error
	for _, e := range entries {
		if e.fields == nil {
			malformed = append(malformed, e)
			malformedErrs = append(malformedErrs, errEntryDeleted)

			continue
		}
		msg, err := stockrelay.MessageFromFields(e.id, e.fields)
		if err != nil {
			malformed = append(malformed, e)
			malformedErrs = append(malformedErrs, err)

			continue
		}
		msgs = append(msgs, msg)
	}

	if len(malformed) > 0 {
		if err := q.deadLetterMalformed(ctx, malformed, malformedErrs); err != nil {
			return nil, err
		}
	}
	if len(msgs) == 0 {
		return nil, stockrelay.ErrNoMessages
	}

	return &batch{queue: q, msgs: msgs}, nil
}

var errEntryDeleted = errors.New("entry deleted while pending")

func (q *Queue) deadLetterMalformed(ctx context.Context, entries []entry, errs []error) error {
	b := &batch{queue: q}
	now := q.cfg.Clock.Now().UTC().Format(time.RFC3339Nano)
	for i, e := range entries {
		q.cfg.Logger.Error("stockrelay redis malformed entry dead-lettered", "id", e.id, "err", errs[i])
		if e.fields != nil {
			fields := make([]stockrelay.Field, 0, len(e.fields)+2)
			for name, value := range e.fields {
				fields = append(fields, stockrelay.Field{Name: name, Value: value})
			}
			fields = append(fields,
				stockrelay.Field{Name: stockrelay.FieldError, Value: truncateError(errs[i])},
				stockrelay.Field{Name: stockrelay.FieldFailedAt, Value: now},
			)
			b.stage("XADD", xaddArgs(q.cfg.DeadLetter, fields)...)
		}
		b.stageSettle(e.id)
	}

	return b.Commit(ctx)
}

func (q *Queue) resetGroup() {
	q.groupMu.Lock()
	q.groupReady = false
	q.groupMu.Unlock()
}

func xaddArgs(stream string, fields []stockrelay.Field) redis.Args {
	args := make(redis.Args, 0, 2+len(fields)*2)
	args = append(args, stream, "*")
	for _, f := range fields {
		args = append(args, f.Name, f.Value)
	}

	return args
}

// do runs cmd honoring ctx when the connection supports it.
func do(ctx context.Context, conn redis.Conn, cmd string, args ...any) (any, error) {
	if cc, ok := conn.(redis.ConnWithContext); ok {
		return cc.DoContext(ctx, cmd, args...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return conn.Do(cmd, args...)
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNoGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOGROUP")
}
