package natsqueue

import (
	"time"

	"github.com/velmie/stockrelay"
)

const (
	defaultStream            = "ERP_UPDATES"
	defaultSubject           = "erp.updates"
	defaultDeadLetterStream  = "ERP_DEAD_LETTER"
	defaultDeadLetterSubject = "erp.dead_letter"
	defaultDurable           = "erp_group"
	defaultAckWait           = time.Minute
)

// Config defines JetStream queue behavior.
type Config struct {
	Stream            string
	Subject           string
	DeadLetterStream  string
	DeadLetterSubject string
	// Durable is the pull consumer name shared by all workers.
	Durable string
	// AckWait is how long a fetched message stays invisible before redelivery.
	AckWait time.Duration
	Clock   stockrelay.Clock
	Logger  stockrelay.Logger
}

func (c Config) withDefaults() Config {
	if c.Stream == "" {
		c.Stream = defaultStream
	}
	if c.Subject == "" {
		c.Subject = defaultSubject
	}
	if c.DeadLetterStream == "" {
		c.DeadLetterStream = defaultDeadLetterStream
	}
	if c.DeadLetterSubject == "" {
		c.DeadLetterSubject = defaultDeadLetterSubject
	}
	if c.Durable == "" {
		c.Durable = defaultDurable
	}
	if c.AckWait <= 0 {
		c.AckWait = defaultAckWait
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
	if c.Stream == c.DeadLetterStream || c.Subject == c.DeadLetterSubject {
		return ErrSameStream
	}

	return nil
}

// Option configures the JetStream queue.
type Option func(*Config)

// WithStream sets the work stream and its subject.
func WithStream(name, subject string) Option {
	return func(c *Config) {
		c.Stream = name
		c.Subject = subject
	}
}

// WithDeadLetterStream sets the dead-letter stream and its subject.
func WithDeadLetterStream(name, subject string) Option {
	return func(c *Config) {
		c.DeadLetterStream = name
		c.DeadLetterSubject = subject
	}
}

// WithDurable sets the durable consumer name.
func WithDurable(name string) Option {
	return func(c *Config) {
		c.Durable = name
	}
}

// WithAckWait sets the redelivery timeout of fetched messages.
func WithAckWait(wait time.Duration) Option {
	return func(c *Config) {
		c.AckWait = wait
	}
}

// WithClock sets the time source.
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
