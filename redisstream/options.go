package redisstream

import (
	"github.com/google/uuid"

	"github.com/velmie/stockrelay"
)

const (
	// DefaultStream is the main queue stream.
	DefaultStream = "erp_updates"
	// DefaultGroup is the consumer group shared by relay workers.
	DefaultGroup = "erp_group"
	// DefaultDeadLetterStream receives terminally failed messages.
	DefaultDeadLetterStream = "erp_dead_letter"
)

// Config defines Redis queue behavior.
type Config struct {
	Stream     string
	Group      string
	DeadLetter string
	// Consumer is this process' name inside the group. Defaults to worker-<uuid>.
	Consumer string
	Clock    stockrelay.Clock
	Logger   stockrelay.Logger
}

func (c Config) withDefaults() Config {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Group == "" {
		c.Group = DefaultGroup
	}
	if c.DeadLetter == "" {
		c.DeadLetter = DefaultDeadLetterStream
	}
	if c.Consumer == "" {
		c.Consumer = "worker-" + uuid.NewString()
	}
	if c.Clock == nil {
		c.Clock = stockrelay.SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = stockrelay.NopLogger{}
	}

	return c
}

func (c Config) validate() error {
	if c.Stream == c.DeadLetter {
		return ErrSameStream
	}

	return nil
}

// Option configures the Redis queue.
type Option func(*Config)

// WithStream sets the main stream key.
func WithStream(name string) Option {
	return func(c *Config) {
		c.Stream = name
	}
}

// WithGroup sets the consumer group name.
func WithGroup(name string) Option {
	return func(c *Config) {
		c.Group = name
	}
}

// WithDeadLetterStream sets the dead-letter stream key.
func WithDeadLetterStream(name string) Option {
	return func(c *Config) {
		c.DeadLetter = name
	}
}

// WithConsumer sets the consumer name used inside the group.
func WithConsumer(name string) Option {
	return func(c *Config) {
		c.Consumer = name
	}
}

// WithClock sets the time source used for enqueue and failure timestamps.
func WithClock(clock stockrelay.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the queue logger.
func WithLogger(logger stockrelay.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
