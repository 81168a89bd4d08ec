package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/gateway"
)

const (
	// HeaderAPIKey carries the supplier API key.
	HeaderAPIKey = "X-Api-Key"

	defaultMaxBodyBytes  = 10 << 20
	defaultHealthTimeout = 2 * time.Second
)

// Ingester processes one batch request.
type Ingester interface {
	Ingest(ctx context.Context, apiKey string, body []byte) (gateway.Summary, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config defines server behavior.
type Config struct {
	MaxBodyBytes  int64
	HealthTimeout time.Duration
	Checks        map[string]HealthCheck
	Logger        stockrelay.Logger
}

// Option configures the server.
type Option func(*Config)

// WithMaxBodyBytes caps the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Config) {
		c.MaxBodyBytes = n
	}
}

// WithHealthCheck registers a named dependency check for /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(c *Config) {
		if c.Checks == nil {
			c.Checks = make(map[string]HealthCheck)
		}
		c.Checks[name] = check
	}
}

// WithLogger sets the request and error logger.
func WithLogger(logger stockrelay.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

type server struct {
	ingester Ingester
	cfg      Config
}

// NewRouter builds the gin engine serving the ingestion API.
func NewRouter(ingester Ingester, opts ...Option) *gin.Engine {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaultHealthTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = stockrelay.NopLogger{}
	}

	s := &server{ingester: ingester, cfg: cfg}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))
	router.GET("/healthz", s.health)
	v1 := router.Group("/v1")
	{
		v1.POST("/update-stock", s.updateStock)
	}

	return router
}

func (s *server) updateStock(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		status, code, message := statusFor(err)
		respondWithError(c, status, code, message, nil)

		return
	}

	summary, err := s.ingester.Ingest(c.Request.Context(), c.GetHeader(HeaderAPIKey), body)
	if err != nil {
		status, code, message := statusFor(err)
		if status == http.StatusInternalServerError {
			s.cfg.Logger.Error("stockrelay ingestion failed", "err", err)
		}
		respondWithError(c, status, code, message, nil)

		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.HealthTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.cfg.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		respondWithError(c, http.StatusServiceUnavailable, CodeUnavailable, "dependency check failed", failed)

		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(logger stockrelay.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("stockrelay http request", args...)

			return
		}
		logger.Info("stockrelay http request", args...)
	}
}
