package redisstream

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gomodule/redigo/redis"

	"github.com/velmie/stockrelay"
)

const maxErrorLen = 1024

type command struct {
	name string
	args redis.Args
}

// batch stages stream mutations and applies them in a single MULTI/EXEC on Commit.
type batch struct {
	queue *Queue
	msgs  []stockrelay.Message
	cmds  []command
}

// Messages returns the messages claimed for this batch.
func (b *batch) Messages() []stockrelay.Message {
	return b.msgs
}

// Ack stages removal of delivered messages.
func (b *batch) Ack(_ context.Context, msgs []stockrelay.Message) error {
	for _, msg := range msgs {
		b.stageSettle(msg.ID)
	}

	return nil
}

// Fail stages a re-append with an incremented retry counter and removes the original entry.
func (b *batch) Fail(_ context.Context, failures []stockrelay.Failure) error {
	for _, f := range failures {
		next := f.Message.Retried()
		b.stage("XADD", xaddArgs(b.queue.cfg.Stream, next.Fields())...)
		b.stageSettle(f.Message.ID)
	}

	return nil
}

// Dead stages a dead-letter entry and removes the original entry.
func (b *batch) Dead(_ context.Context, failures []stockrelay.Failure) error {
	now := b.queue.cfg.Clock.Now()
	for _, f := range failures {
		dl := stockrelay.DeadLetter{
			Message:  f.Message,
			Payload:  f.Payload,
			Err:      truncateError(f.Err),
			FailedAt: now,
		}
		b.stage("XADD", xaddArgs(b.queue.cfg.DeadLetter, dl.Fields())...)
		b.stageSettle(f.Message.ID)
	}

	return nil
}

// Commit applies the staged commands atomically.
func (b *batch) Commit(ctx context.Context) error {
	if len(b.cmds) == 0 {
		return nil
	}

	conn, err := b.queue.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("stockrelay redis: get conn failed: %w", err)
	}
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return fmt.Errorf("stockrelay redis: multi failed: %w", err)
	}
	for _, cmd := range b.cmds {
		if err := conn.Send(cmd.name, cmd.args...); err != nil {
			return fmt.Errorf("stockrelay redis: queue %s failed: %w", cmd.name, err)
		}
	}

	replies, err := redis.Values(do(ctx, conn, "EXEC"))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return ErrTransactionAborted
		}

		return fmt.Errorf("stockrelay redis: exec failed: %w", err)
	}
	for i, reply := range replies {
		if rerr, ok := reply.(redis.Error); ok {
			return fmt.Errorf("stockrelay redis: %s failed: %w", b.cmds[i].name, rerr)
		}
	}
	b.cmds = nil

	return nil
}

// Rollback discards staged commands. Unsettled entries stay pending in the group.
func (b *batch) Rollback() error {
	b.cmds = nil

	return nil
}

func (b *batch) stage(name string, args ...any) {
	b.cmds = append(b.cmds, command{name: name, args: args})
}

func (b *batch) stageSettle(id string) {
	b.stage("XACK", b.queue.cfg.Stream, b.queue.cfg.Group, id)
	b.stage("XDEL", b.queue.cfg.Stream, id)
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	if utf8.RuneCountInString(msg) <= maxErrorLen {
		return msg
	}

	return string([]rune(msg)[:maxErrorLen])
}
