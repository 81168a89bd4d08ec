package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velmie/stockrelay"
)

// ItemStatus is the per-item outcome reported to the caller.
type ItemStatus string

// Item statuses. Items without an identifier are dropped and get no status.
const (
	StatusSkipped   ItemStatus = "skipped"
	StatusSimulated ItemStatus = "simulated"
	StatusQueued    ItemStatus = "queued"
	StatusError     ItemStatus = "error"
)

// BatchCompleted is the summary status of every accepted batch.
const BatchCompleted = "batch_completed"

// SupplierResolver maps an API key to an active supplier.
type SupplierResolver interface {
	// SupplierByAPIKey returns stockrelay.ErrSupplierNotFound when no active supplier matches.
	SupplierByAPIKey(ctx context.Context, key string) (stockrelay.Supplier, error)
}

// ConfigLookup reads dynamic settings.
type ConfigLookup interface {
	ConfigValue(ctx context.Context, name string) (string, bool, error)
}

// Detail is the outcome of one item.
type Detail struct {
	Identifier string     `json:"identifier"`
	Status     ItemStatus `json:"status"`
	Message    string     `json:"message,omitempty"`
}

// Summary is the result of a batch.
type Summary struct {
	Status    string   `json:"status"`
	Processed int      `json:"processed"`
	Details   []Detail `json:"details"`
}

// forwardPayload is the downstream request body carried by a queued message.
type forwardPayload struct {
	Action     string          `json:"action"`
	Key        string          `json:"key"`
	SupplierID string          `json:"supplier_id"`
	GlobalIDs  []string        `json:"global_ids,omitempty"`
	Item       stockrelay.Item `json:"item"`
}

// Gateway ingests supplier batches.
type Gateway struct {
	resolver SupplierResolver
	state    stockrelay.StateStore
	producer stockrelay.Producer
	cfg      Config
}

// New constructs a Gateway.
func New(resolver SupplierResolver, state stockrelay.StateStore, producer stockrelay.Producer, opts ...Option) (*Gateway, error) {
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if state == nil {
		return nil, ErrStateRequired
	}
	if producer == nil {
		return nil, ErrProducerRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Gateway{
		resolver: resolver,
		state:    state,
		producer: producer,
		cfg:      cfg.withDefaults(),
	}, nil
}

// Ingest processes a batch sent with apiKey. It fails only with stockrelay.ErrUnauthorized,
// stockrelay.ErrBadRequest or an unexpected resolver error; item failures are reported in the summary.
func (g *Gateway) Ingest(ctx context.Context, apiKey string, body []byte) (Summary, error) {
	supplier, err := g.authenticate(ctx, apiKey)
	if err != nil {
		return Summary{}, err
	}

	env, err := ParseEnvelope(body, supplier.Mapping.ListRoot)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", stockrelay.ErrBadRequest, err)
	}
	if env.Dropped > 0 {
		g.cfg.Logger.Warn("stockrelay gateway dropped non-object items", "supplier", supplier.ID, "count", env.Dropped)
	}

	var endpoint string
	if !env.SimulateOnly {
		endpoint = g.resolveEndpoint(ctx)
	}

	strategy := g.cfg.Identifier
	if strategy == nil {
		strategy = identifierFor(supplier.Mapping)
	}
	excluded := supplier.Mapping.ExcludedFields()

	details := make([]Detail, 0, len(env.Items))
	for _, raw := range env.Items {
		item := Apply(supplier.Mapping, raw)
		state := Sanitize(item, excluded)
		id, ok := strategy.Identify(newCandidate(supplier.Mapping, raw, state))
		if !ok || id == "" {
			g.cfg.Logger.Warn("stockrelay gateway item skipped", "supplier", supplier.ID, "err", stockrelay.ErrItemSkipped)

			continue
		}

		detail := Detail{Identifier: id}
		status, err := g.ingestItem(ctx, supplier, env, id, item, state, endpoint)
		if err != nil {
			g.cfg.Logger.Error("stockrelay gateway item failed", "supplier", supplier.ID, "sku", id, "err", err)
			detail.Status = StatusError
			detail.Message = err.Error()
		} else {
			detail.Status = status
		}
		details = append(details, detail)
	}

	return Summary{Status: BatchCompleted, Processed: len(details), Details: details}, nil
}

func (g *Gateway) authenticate(ctx context.Context, apiKey string) (stockrelay.Supplier, error) {
	if apiKey == "" {
		return stockrelay.Supplier{}, stockrelay.ErrUnauthorized
	}

	supplier, err := g.resolver.SupplierByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, stockrelay.ErrSupplierNotFound) {
			return stockrelay.Supplier{}, stockrelay.ErrUnauthorized
		}

		return stockrelay.Supplier{}, fmt.Errorf("stockrelay gateway: resolve supplier: %w", err)
	}
	if !supplier.Active {
		return stockrelay.Supplier{}, stockrelay.ErrUnauthorized
	}

	return supplier, nil
}

func (g *Gateway) resolveEndpoint(ctx context.Context) string {
	if g.cfg.Settings == nil {
		return g.cfg.Endpoint
	}

	url, ok, err := g.cfg.Settings.ConfigValue(ctx, ConfigEndpointKey)
	if err != nil {
		g.cfg.Logger.Warn("stockrelay gateway endpoint lookup failed", "key", ConfigEndpointKey, "err", err)

		return g.cfg.Endpoint
	}
	if !ok {
		return g.cfg.Endpoint
	}

	return url
}

func (g *Gateway) ingestItem(
	ctx context.Context,
	supplier stockrelay.Supplier,
	env Envelope,
	id string,
	item stockrelay.Item,
	state stockrelay.Item,
	endpoint string,
) (ItemStatus, error) {
	value, err := CanonicalJSON(state)
	if err != nil {
		return "", fmt.Errorf("encode item state: %w", err)
	}
	key := CacheKey(supplier.ID, env.GlobalIDs, id)

	prev, found, err := g.state.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read item state: %w", err)
	}
	if found && prev == value {
		return StatusSkipped, nil
	}

	if env.SimulateOnly {
		if g.cfg.Audit != nil {
			entry := stockrelay.AuditEntry{SupplierID: supplier.ID, Identifier: id, Status: stockrelay.StatusSimulation}
			if err := g.cfg.Audit.Append(ctx, entry); err != nil {
				return "", fmt.Errorf("audit simulation: %w", err)
			}
		}
		if err := g.state.Set(ctx, key, value, g.cfg.CacheTTL); err != nil {
			return "", fmt.Errorf("write item state: %w", err)
		}

		return StatusSimulated, nil
	}

	if endpoint == "" {
		return "", ErrNoEndpoint
	}
	payload, err := encodePayload(forwardPayload{
		Action:     g.cfg.Action,
		Key:        g.cfg.Key,
		SupplierID: supplier.ID,
		GlobalIDs:  env.GlobalIDs,
		Item:       item,
	})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	msg := stockrelay.Message{
		SupplierID: supplier.ID,
		Identifier: id,
		CacheKey:   key,
		CacheValue: value,
		Endpoint:   endpoint,
		Payload:    payload,
		EnqueuedAt: g.cfg.Clock.Now(),
	}
	if _, err := g.producer.Enqueue(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	return StatusQueued, nil
}

func encodePayload(p forwardPayload) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}

	return json.RawMessage(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
