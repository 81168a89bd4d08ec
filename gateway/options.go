package gateway

import (
	"time"

	"github.com/velmie/stockrelay"
)

const (
	// ConfigEndpointKey is the dynamic setting holding the downstream endpoint.
	ConfigEndpointKey = "erp_webhook_url"
	// DefaultAction is the action identifier sent downstream.
	DefaultAction = "update_stock"
)

// Config defines gateway behavior.
type Config struct {
	// Endpoint is the static downstream URL used when the dynamic lookup has none.
	Endpoint string
	Action   string
	// Key authenticates the gateway against the downstream endpoint.
	Key      string
	CacheTTL time.Duration
	// Identifier overrides the per-supplier identifier strategy.
	Identifier IdentifierStrategy
	Settings   ConfigLookup
	Audit      stockrelay.AuditLog
	Clock      stockrelay.Clock
	Logger     stockrelay.Logger
}

func (c Config) withDefaults() Config {
	if c.Action == "" {
		c.Action = DefaultAction
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = stockrelay.DefaultCacheTTL
	}
	if c.Clock == nil {
		c.Clock = stockrelay.SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = stockrelay.NopLogger{}
	}

	return c
}

// Option configures the gateway.
type Option func(*Config)

// WithEndpoint sets the static downstream endpoint.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		c.Endpoint = url
	}
}

// WithAction sets the action identifier sent downstream.
func WithAction(action string) Option {
	return func(c *Config) {
		c.Action = action
	}
}

// WithKey sets the downstream auth key.
func WithKey(key string) Option {
	return func(c *Config) {
		c.Key = key
	}
}

// WithCacheTTL sets the lifetime of simulated item states.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// WithIdentifier replaces the per-supplier identifier strategy.
func WithIdentifier(strategy IdentifierStrategy) Option {
	return func(c *Config) {
		c.Identifier = strategy
	}
}

// WithSettings enables the dynamic endpoint lookup.
func WithSettings(lookup ConfigLookup) Option {
	return func(c *Config) {
		c.Settings = lookup
	}
}

// WithAudit records simulated items.
func WithAudit(log stockrelay.AuditLog) Option {
	return func(c *Config) {
		c.Audit = log
	}
}

// WithClock sets the gateway clock.
func WithClock(clock stockrelay.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger stockrelay.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
