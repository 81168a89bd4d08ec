// Package config loads settings for the stockrelay binaries.
//
// Values are layered: built-in defaults, then an optional YAML file, then environment
// variables (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v2"
)

// Queue backends.
const (
	BackendRedis = "redis"
	BackendNATS  = "nats"
)

// Config holds every setting used by the binaries. Each binary validates the subset it needs.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Redis RedisConfig `yaml:"redis"`
	Queue QueueConfig `yaml:"queue"`
	DB    DBConfig    `yaml:"db"`
	ERP   ERPConfig   `yaml:"erp"`
	Relay RelayConfig `yaml:"relay"`
	Audit AuditConfig `yaml:"audit"`
}

// RedisConfig configures the state store and the default queue.
type RedisConfig struct {
	URL     string `yaml:"url"`
	MaxIdle int    `yaml:"max_idle"`
}

// QueueConfig selects and names the durable queue.
type QueueConfig struct {
	Backend    string `yaml:"backend"`
	Stream     string `yaml:"stream"`
	Group      string `yaml:"group"`
	DeadLetter string `yaml:"dead_letter"`
	NATSURL    string `yaml:"nats_url"`
}

// DBConfig configures the relational store. DSN wins over the discrete fields.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ERPConfig configures the downstream webhook.
type ERPConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	WebhookKey string        `yaml:"webhook_key"`
	Action     string        `yaml:"action"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RelayConfig configures the relay worker.
type RelayConfig struct {
	MaxRetry        int           `yaml:"max_retry"`
	BatchSize       int           `yaml:"batch_size"`
	ReadBlock       time.Duration `yaml:"read_block"`
	Workers         int           `yaml:"workers"`
	Timezone        string        `yaml:"timezone"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ReclaimIdle     time.Duration `yaml:"reclaim_idle"`
	ReclaimSchedule string        `yaml:"reclaim_schedule"`
	StatsSchedule   string        `yaml:"stats_schedule"`
	DeadOnRejection bool          `yaml:"dead_on_rejection"`
}

// AuditConfig configures pruning of the audit table.
type AuditConfig struct {
	Retention time.Duration `yaml:"retention"`
	Schedule  string        `yaml:"schedule"`
}

// LoadEnvFile loads path into the process environment without overriding existing variables.
// It reports false when the file does not exist.
func LoadEnvFile(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}
	if err := godotenv.Load(path); err != nil {
		return true, fmt.Errorf("load %s: %w", path, err)
	}

	return true, nil
}

// Load builds the configuration from the optional YAML file at path and the environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = "3000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Redis.MaxIdle <= 0 {
		c.Redis.MaxIdle = 10
	}
	if c.Queue.Backend == "" {
		c.Queue.Backend = BackendRedis
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "mysql"
	}
	if c.DB.Port == "" {
		if c.DB.Driver == "mysql" {
			c.DB.Port = "3306"
		} else {
			c.DB.Port = "5432"
		}
	}
	if c.ERP.Timeout <= 0 {
		c.ERP.Timeout = 10 * time.Second
	}
	if c.Relay.ReclaimSchedule == "" {
		c.Relay.ReclaimSchedule = "@every 1m"
	}
	if c.Relay.StatsSchedule == "" {
		c.Relay.StatsSchedule = "@every 5m"
	}
	if c.Audit.Schedule == "" {
		c.Audit.Schedule = "@hourly"
	}

	return c
}

// ValidateQueue checks the settings needed to reach the queue backend.
func (c Config) ValidateQueue() error {
	switch c.Queue.Backend {
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL is required")
		}
	case BackendNATS:
		if c.Queue.NATSURL == "" {
			return errors.New("NATS_URL is required for the nats queue backend")
		}
	default:
		return fmt.Errorf("unsupported queue backend %q", c.Queue.Backend)
	}

	return nil
}

// ValidateAPI checks the settings needed by the ingestion API.
func (c Config) ValidateAPI() error {
	if c.Redis.URL == "" {
		return errors.New("REDIS_URL is required")
	}
	if err := c.ValidateQueue(); err != nil {
		return err
	}

	return c.validateDB()
}

// ValidateWorker checks the settings needed by the relay worker.
func (c Config) ValidateWorker() error {
	if c.Redis.URL == "" {
		return errors.New("REDIS_URL is required")
	}
	if c.Relay.MaxRetry < 0 || c.Relay.BatchSize < 0 || c.Relay.Workers < 0 {
		return errors.New("relay limits must not be negative")
	}

	return c.ValidateQueue()
}

// ValidateCleanup checks the settings needed by audit pruning.
func (c Config) ValidateCleanup() error {
	if c.Audit.Retention <= 0 {
		return errors.New("AUDIT_RETENTION must be positive")
	}

	return c.validateDB()
}

func (c Config) validateDB() error {
	if c.DB.DSN == "" && c.DB.Host == "" {
		return errors.New("DATABASE_DSN or DB_HOST is required")
	}

	return nil
}

// DataSourceName returns the DSN for the configured driver.
func (c Config) DataSourceName() string {
	if c.DB.DSN != "" {
		return c.DB.DSN
	}
	addr := net.JoinHostPort(c.DB.Host, c.DB.Port)
	if c.DB.Driver != "mysql" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DB.User, c.DB.Password),
			Host:     addr,
			Path:     "/" + c.DB.Database,
			RawQuery: "sslmode=disable",
		}

		return u.String()
	}

	mc := mysql.NewConfig()
	mc.User = c.DB.User
	mc.Passwd = c.DB.Password
	mc.Net = "tcp"
	mc.Addr = addr
	mc.DBName = c.DB.Database
	mc.ParseTime = true

	return mc.FormatDSN()
}

type envBinding struct {
	name string
	set  func(string) error
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	bindings := []envBinding{
		{"PORT", setString(&cfg.Port)},
		{"LOG_LEVEL", setString(&cfg.LogLevel)},
		{"LOG_FORMAT", setString(&cfg.LogFormat)},
		{"REDIS_URL", setString(&cfg.Redis.URL)},
		{"REDIS_MAX_IDLE", setInt(&cfg.Redis.MaxIdle)},
		{"QUEUE_BACKEND", setString(&cfg.Queue.Backend)},
		{"STREAM", setString(&cfg.Queue.Stream)},
		{"GROUP", setString(&cfg.Queue.Group)},
		{"DEAD_LETTER", setString(&cfg.Queue.DeadLetter)},
		{"NATS_URL", setString(&cfg.Queue.NATSURL)},
		{"DB_DRIVER", setString(&cfg.DB.Driver)},
		{"DATABASE_DSN", setString(&cfg.DB.DSN)},
		{"DB_HOST", setString(&cfg.DB.Host)},
		{"DB_PORT", setString(&cfg.DB.Port)},
		{"DB_USER", setString(&cfg.DB.User)},
		{"DB_PASSWORD", setString(&cfg.DB.Password)},
		{"DB_DATABASE", setString(&cfg.DB.Database)},
		{"ERP_WEBHOOK_URL", setString(&cfg.ERP.WebhookURL)},
		{"ERP_WEBHOOK_KEY", setString(&cfg.ERP.WebhookKey)},
		{"ERP_ACTION", setString(&cfg.ERP.Action)},
		{"ERP_TIMEOUT", setDuration(&cfg.ERP.Timeout)},
		{"MAX_RETRY", setInt(&cfg.Relay.MaxRetry)},
		{"BATCH_SIZE", setInt(&cfg.Relay.BatchSize)},
		{"READ_BLOCK", setDuration(&cfg.Relay.ReadBlock)},
		{"WORKERS", setInt(&cfg.Relay.Workers)},
		{"TIMEZONE", setString(&cfg.Relay.Timezone)},
		{"CACHE_TTL", setDuration(&cfg.Relay.CacheTTL)},
		{"RECLAIM_IDLE", setDuration(&cfg.Relay.ReclaimIdle)},
		{"RECLAIM_SCHEDULE", setString(&cfg.Relay.ReclaimSchedule)},
		{"STATS_SCHEDULE", setString(&cfg.Relay.StatsSchedule)},
		{"DEAD_ON_REJECTION", setBool(&cfg.Relay.DeadOnRejection)},
		{"AUDIT_RETENTION", setDuration(&cfg.Audit.Retention)},
		{"AUDIT_SCHEDULE", setString(&cfg.Audit.Schedule)},
	}

	for _, b := range bindings {
		raw, ok := lookup(b.name)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if err := b.set(raw); err != nil {
			return fmt.Errorf("env %s: %w", b.name, err)
		}
	}

	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v

		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n

		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d

		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b

		return nil
	}
}
