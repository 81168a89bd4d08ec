package sqlstore

import "github.com/velmie/stockrelay"

// Config defines store behavior.
type Config struct {
	Dialect Dialect
	Tables  Tables
	Clock   stockrelay.Clock
	Logger  stockrelay.Logger
}

func (c Config) withDefaults() Config {
	if c.Dialect == "" {
		c.Dialect = MySQL
	}
	c.Tables = c.Tables.withDefaults()
	if c.Clock == nil {
		c.Clock = stockrelay.SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = stockrelay.NopLogger{}
	}

	return c
}

// Option configures the store.
type Option func(*Config)

// WithDialect sets the SQL dialect. MySQL is the default.
func WithDialect(d Dialect) Option {
	return func(c *Config) {
		c.Dialect = d
	}
}

// WithTables overrides table names. Empty names keep their defaults.
func WithTables(t Tables) Option {
	return func(c *Config) {
		c.Tables = t
	}
}

// WithClock sets the time source used for audit timestamps.
func WithClock(clock stockrelay.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the store logger.
func WithLogger(logger stockrelay.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
