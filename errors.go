package stockrelay

import "errors"

var (
	// ErrInvalidBatchSize indicates that the requested batch size is not positive.
	ErrInvalidBatchSize = errors.New("stockrelay batch size must be positive")
	// ErrNoMessages signals that the read timed out without new messages.
	ErrNoMessages = errors.New("stockrelay queue has no pending messages")
	// ErrNilBatch indicates that a consumer returned a nil batch.
	ErrNilBatch = errors.New("stockrelay batch is nil")
	// ErrEmptyBatch indicates that a consumer returned a batch with no messages.
	ErrEmptyBatch = errors.New("stockrelay batch has no messages")
	// ErrSupplierRequired is returned when Message.SupplierID is empty.
	ErrSupplierRequired = errors.New("stockrelay supplier id is required")
	// ErrIdentifierRequired is returned when Message.Identifier is empty.
	ErrIdentifierRequired = errors.New("stockrelay item identifier is required")
	// ErrPayloadRequired is returned when Message.Payload is empty.
	ErrPayloadRequired = errors.New("stockrelay payload is required")
	// ErrInvalidPayload is returned when Message.Payload is not a JSON object.
	ErrInvalidPayload = errors.New("stockrelay payload must be a JSON object")
	// ErrInvalidRetryCount is returned when a retry counter cannot be decoded.
	ErrInvalidRetryCount = errors.New("stockrelay retry count is invalid")
	// ErrWorkerPanic indicates a relay worker panic.
	ErrWorkerPanic = errors.New("stockrelay worker panic")

	// ErrUnauthorized is returned when the API key is missing or matches no active supplier.
	ErrUnauthorized = errors.New("stockrelay unauthorized")
	// ErrBadRequest is returned when a batch envelope carries no extractable item list.
	ErrBadRequest = errors.New("stockrelay bad request")
	// ErrItemSkipped marks an item dropped because no identifier could be resolved.
	ErrItemSkipped = errors.New("stockrelay item has no identifier")
	// ErrSupplierNotFound is returned by resolvers when no active supplier matches.
	ErrSupplierNotFound = errors.New("stockrelay supplier not found")

	// ErrDeliveryFailed wraps transport failures of the downstream call (timeouts, network errors).
	ErrDeliveryFailed = errors.New("stockrelay delivery failed")
	// ErrDeliveryRejected is returned when the downstream response lacks the success flag.
	ErrDeliveryRejected = errors.New("stockrelay delivery rejected")
	// ErrPermanentRejection marks rejections that a retry cannot fix (client errors).
	ErrPermanentRejection = errors.New("stockrelay delivery permanently rejected")
	// ErrRetryExhausted wraps the last delivery error of a message that reached the retry bound.
	ErrRetryExhausted = errors.New("stockrelay retry budget exhausted")
	// ErrCommitFailed is returned when the state write after a confirmed delivery fails.
	ErrCommitFailed = errors.New("stockrelay state commit failed")
)
