package stockrelay

import "time"

const (
	// DefaultMaxRetry is the retry counter at which a failing message is dead-lettered.
	DefaultMaxRetry = 5

	defaultBatchSize    = 10
	defaultReadBlock    = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultErrorBackoff = time.Second
	defaultWorkers      = 1
	defaultReclaimIdle  = time.Minute
	defaultPendingCheck = 0
)

// RelayConfig defines how the Relay reads and settles messages.
type RelayConfig struct {
	BatchSize         int
	ReadBlock         time.Duration
	PollInterval      time.Duration
	ErrorBackoff      time.Duration
	Workers           int
	MaxRetry          int
	CacheTTL          time.Duration
	Location          *time.Location
	Clock             Clock
	ErrorHandler      FailureHandler
	Logger            Logger
	Metrics           Metrics
	FailureClassifier FailureClassifier
	HandlerTimeout    time.Duration
	PendingInterval   time.Duration
	ReclaimIdle       time.Duration
	Audit             AuditLog
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ReadBlock <= 0 {
		c.ReadBlock = defaultReadBlock
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = defaultErrorBackoff
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = DefaultMaxRetry
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Location == nil {
		loc, err := LoadLocation(DefaultTimezone)
		if err != nil {
			c.Logger.Warn("stockrelay timezone unavailable, stamping in UTC", "zone", DefaultTimezone, "err", err)
		}
		c.Location = loc
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.FailureClassifier == nil {
		c.FailureClassifier = RetryAll
	}
	if c.PendingInterval <= 0 {
		c.PendingInterval = defaultPendingCheck
	}
	if c.ReclaimIdle <= 0 {
		c.ReclaimIdle = defaultReclaimIdle
	}

	return c
}

// RelayOption configures Relay behavior.
type RelayOption func(*RelayConfig)

// WithBatchSize sets the number of messages read per batch.
func WithBatchSize(size int) RelayOption {
	return func(c *RelayConfig) {
		c.BatchSize = size
	}
}

// WithReadBlock bounds how long a read waits on an empty queue.
func WithReadBlock(block time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.ReadBlock = block
	}
}

// WithPollInterval sets the pause after an empty read.
func WithPollInterval(interval time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.PollInterval = interval
	}
}

// WithErrorBackoff sets the pause after a failed read or settle before the worker retries.
func WithErrorBackoff(backoff time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.ErrorBackoff = backoff
	}
}

// WithWorkers sets the number of concurrent reading workers.
func WithWorkers(count int) RelayOption {
	return func(c *RelayConfig) {
		c.Workers = count
	}
}

// WithMaxRetry sets the retry counter at which failures are dead-lettered.
func WithMaxRetry(limit int) RelayOption {
	return func(c *RelayConfig) {
		c.MaxRetry = limit
	}
}

// WithCacheTTL sets the lifetime of committed item states.
func WithCacheTTL(ttl time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.CacheTTL = ttl
	}
}

// WithLocation sets the zone used to render timestamp placeholders.
func WithLocation(loc *time.Location) RelayOption {
	return func(c *RelayConfig) {
		c.Location = loc
	}
}

// WithClock sets the Relay clock.
func WithClock(clock Clock) RelayOption {
	return func(c *RelayConfig) {
		c.Clock = clock
	}
}

// WithErrorHandler registers a callback for delivery failures.
func WithErrorHandler(handler FailureHandler) RelayOption {
	return func(c *RelayConfig) {
		c.ErrorHandler = handler
	}
}

// WithLogger sets the relay logger.
func WithLogger(logger Logger) RelayOption {
	return func(c *RelayConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the relay metrics recorder.
func WithMetrics(metrics Metrics) RelayOption {
	return func(c *RelayConfig) {
		c.Metrics = metrics
	}
}

// WithFailureClassifier sets the failure classifier for retry/dead-letter decisions.
func WithFailureClassifier(classifier FailureClassifier) RelayOption {
	return func(c *RelayConfig) {
		c.FailureClassifier = classifier
	}
}

// WithHandlerTimeout sets a per-message handler timeout.
func WithHandlerTimeout(timeout time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.HandlerTimeout = timeout
	}
}

// WithPendingInterval sets the minimum interval between backlog samples.
// Use a positive value to enable sampling or zero to keep it disabled.
// The default is disabled.
func WithPendingInterval(interval time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.PendingInterval = interval
	}
}

// WithReclaimIdle sets how long a message may stay unacknowledged before ReclaimOnce claims it.
func WithReclaimIdle(idle time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.ReclaimIdle = idle
	}
}

// WithAudit records success and dead-letter transitions in log.
func WithAudit(log AuditLog) RelayOption {
	return func(c *RelayConfig) {
		c.Audit = log
	}
}
