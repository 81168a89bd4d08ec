package gateway

import "errors"

var (
	// ErrResolverRequired is returned when no SupplierResolver is provided.
	ErrResolverRequired = errors.New("stockrelay gateway: supplier resolver is required")
	// ErrStateRequired is returned when no StateStore is provided.
	ErrStateRequired = errors.New("stockrelay gateway: state store is required")
	// ErrProducerRequired is returned when no Producer is provided.
	ErrProducerRequired = errors.New("stockrelay gateway: producer is required")
	// ErrNoEndpoint is reported for items that cannot be queued because no downstream endpoint is configured.
	ErrNoEndpoint = errors.New("stockrelay gateway: no downstream endpoint configured")
	// ErrNoItemList is returned when the envelope carries no item list.
	ErrNoItemList = errors.New("stockrelay gateway: envelope has no item list")
	// ErrInvalidEnvelope is returned when the body fails schema validation.
	ErrInvalidEnvelope = errors.New("stockrelay gateway: invalid envelope")
)
