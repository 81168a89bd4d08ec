package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/velmie/stockrelay"
)

const (
	// DefaultTimeout bounds a single delivery.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
	maxDetailLen     = 256
)

// Config defines forwarder behavior.
type Config struct {
	// Endpoint is used for messages that carry none.
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
	Logger   stockrelay.Logger
}

// Option configures the forwarder.
type Option func(*Config)

// WithEndpoint sets the default endpoint.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		c.Endpoint = url
	}
}

// WithTimeout sets the per-delivery timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(c *Config) {
		c.Client = client
	}
}

// WithLogger sets the forwarder logger.
func WithLogger(logger stockrelay.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Forwarder posts messages to the ERP webhook. It implements stockrelay.Handler.
type Forwarder struct {
	cfg Config
}

var _ stockrelay.Handler = (*Forwarder)(nil)

type response struct {
	Success any    `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewForwarder constructs a forwarder with defaults applied.
func NewForwarder(opts ...Option) *Forwarder {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = stockrelay.NopLogger{}
	}

	return &Forwarder{cfg: cfg}
}

// Handle implements stockrelay.Handler.
//
// Transport failures and timeouts wrap stockrelay.ErrDeliveryFailed. Responses without the
// success flag wrap stockrelay.ErrDeliveryRejected; client errors other than 408 and 429 also
// wrap stockrelay.ErrPermanentRejection.
func (f *Forwarder) Handle(ctx context.Context, msg stockrelay.Message) error {
	endpoint := msg.Endpoint
	if endpoint == "" {
		endpoint = f.cfg.Endpoint
	}
	if endpoint == "" {
		return fmt.Errorf("%w: %w", stockrelay.ErrPermanentRejection, ErrEndpointRequired)
	}

	form, err := EncodeForm(msg.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", stockrelay.ErrPermanentRejection, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", stockrelay.ErrPermanentRejection, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", stockrelay.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", stockrelay.ErrDeliveryFailed, err)
	}

	var decoded response
	jsonErr := json.Unmarshal(body, &decoded)
	if jsonErr == nil && decoded.Success == true && resp.StatusCode < http.StatusMultipleChoices {
		f.cfg.Logger.Debug("stockrelay erp delivered", "sku", msg.Identifier, "status", resp.StatusCode)

		return nil
	}

	detail := rejectionDetail(resp.StatusCode, decoded, body, jsonErr)
	if permanent(resp.StatusCode) {
		return fmt.Errorf("%w: %w: %s", stockrelay.ErrDeliveryRejected, stockrelay.ErrPermanentRejection, detail)
	}

	return fmt.Errorf("%w: %s", stockrelay.ErrDeliveryRejected, detail)
}

func permanent(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}

	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

func rejectionDetail(status int, decoded response, body []byte, jsonErr error) string {
	var reason string
	switch {
	case decoded.Message != "":
		reason = decoded.Message
	case decoded.Error != "":
		reason = decoded.Error
	case jsonErr != nil:
		reason = strings.TrimSpace(string(body))
	default:
		reason = "success flag not set"
	}
	if len(reason) > maxDetailLen {
		reason = reason[:maxDetailLen]
	}

	return fmt.Sprintf("status %d: %s", status, reason)
}
