package natsqueue

import "errors"

var (
	// ErrConnRequired is returned when a nil connection is provided.
	ErrConnRequired = errors.New("stockrelay nats: connection is required")
	// ErrSameStream is returned when the dead-letter stream or subject equals the work stream.
	ErrSameStream = errors.New("stockrelay nats: dead-letter stream must differ from the work stream")
	// ErrUnknownMessage is returned when settling a message that does not belong to the batch.
	ErrUnknownMessage = errors.New("stockrelay nats: message is not part of this batch")
)
