package redisstream

import (
	"context"
	"fmt"

	"github.com/gomodule/redigo/redis"

	"github.com/velmie/stockrelay"
)

// ListOptions selects a range of dead-letter entries.
type ListOptions struct {
	// Start and End are stream ids; empty means the stream edges.
	Start string
	End   string
	Count int
	// Newest lists from the most recent entry backwards.
	Newest bool
}

// DeadLetters reads the dead-letter stream. Entries are never moved back to the main stream.
type DeadLetters struct {
	pool Pool
	cfg  Config
}

// NewDeadLetters constructs a dead-letter reader using the queue options for stream names.
func NewDeadLetters(pool Pool, opts ...Option) (*DeadLetters, error) {
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

	return &DeadLetters{pool: pool, cfg: cfg}, nil
}

// Len returns the number of dead letters.
func (d *DeadLetters) Len(ctx context.Context) (int, error) {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	count, err := redis.Int(do(ctx, conn, "XLEN", d.cfg.DeadLetter))
	if err != nil {
		return 0, fmt.Errorf("stockrelay redis: xlen failed: %w", err)
	}

	return count, nil
}

// List returns dead letters in the requested range.
func (d *DeadLetters) List(ctx context.Context, opts ListOptions) ([]stockrelay.DeadLetter, error) {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	cmd, args := rangeArgs(d.cfg.DeadLetter, opts)
	reply, err := do(ctx, conn, cmd, args...)
	if err != nil {
		return nil, fmt.Errorf("stockrelay redis: %s failed: %w", cmd, err)
	}
	entries, err := parseEntries(reply)
	if err != nil {
		return nil, err
	}

	out := make([]stockrelay.DeadLetter, 0, len(entries))
	for _, e := range entries {
		out = append(out, stockrelay.DeadLetterFromFields(e.id, e.fields))
	}

	return out, nil
}

func rangeArgs(stream string, opts ListOptions) (string, redis.Args) {
	start, end := opts.Start, opts.End
	if start == "" {
		start = "-"
	}
	if end == "" {
		end = "+"
	}

	cmd := "XRANGE"
	args := redis.Args{stream, start, end}
	if opts.Newest {
		cmd = "XREVRANGE"
		args = redis.Args{stream, end, start}
	}
	if opts.Count > 0 {
		args = args.Add("COUNT", opts.Count)
	}

	return cmd, args
}
