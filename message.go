package stockrelay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Wire field names of a queue entry. The flat layout is shared by every queue backend.
const (
	FieldSupplierID = "supplier_id"
	FieldIdentifier = "sku"
	FieldCacheKey   = "cache_key"
	FieldCacheValue = "new_state"
	FieldEndpoint   = "endpoint"
	FieldPayload    = "payload"
	FieldRetryCount = "retry_count"
	FieldEnqueuedAt = "enqueued_at"
	FieldError      = "error"
	FieldFailedAt   = "failed_at"
)

// Message is a forward job carried by the durable queue.
type Message struct {
	// ID is assigned by the queue backend and is empty for messages not yet appended.
	ID string
	// SupplierID identifies the supplier that sent the item.
	SupplierID string
	// Identifier is the resolved item identifier (usually a SKU).
	Identifier string
	// CacheKey and CacheValue are written to the StateStore once delivery is confirmed.
	CacheKey   string
	CacheValue string
	// Endpoint optionally overrides the forwarder's default target URL.
	Endpoint string
	// Payload is the downstream request body as a JSON object.
	Payload json.RawMessage
	// RetryCount counts failed deliveries so far.
	RetryCount int
	EnqueuedAt time.Time
}

// Field is a single name/value pair of the wire representation.
type Field struct {
	Name  string
	Value string
}

// Validate checks required fields and that the payload is a JSON object.
func (m Message) Validate() error {
	if m.SupplierID == "" {
		return ErrSupplierRequired
	}
	if m.Identifier == "" {
		return ErrIdentifierRequired
	}
	if len(m.Payload) == 0 {
		return ErrPayloadRequired
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(m.Payload, &obj); err != nil {
		return ErrInvalidPayload
	}
	if m.RetryCount < 0 {
		return ErrInvalidRetryCount
	}

	return nil
}

// Retried returns a copy ready to be re-appended after a failed delivery.
func (m Message) Retried() Message {
	next := m
	next.ID = ""
	next.RetryCount = m.RetryCount + 1

	return next
}

// Fields returns the wire representation in a stable order.
func (m Message) Fields() []Field {
	fields := []Field{
		{Name: FieldSupplierID, Value: m.SupplierID},
		{Name: FieldIdentifier, Value: m.Identifier},
		{Name: FieldCacheKey, Value: m.CacheKey},
		{Name: FieldCacheValue, Value: m.CacheValue},
		{Name: FieldEndpoint, Value: m.Endpoint},
		{Name: FieldPayload, Value: string(m.Payload)},
		{Name: FieldRetryCount, Value: strconv.Itoa(m.RetryCount)},
	}
	if !m.EnqueuedAt.IsZero() {
		fields = append(fields, Field{Name: FieldEnqueuedAt, Value: m.EnqueuedAt.UTC().Format(time.RFC3339Nano)})
	}

	return fields
}

// MessageFromFields decodes a queue entry. A missing retry counter reads as zero.
func MessageFromFields(id string, fields map[string]string) (Message, error) {
	msg := Message{
		ID:         id,
		SupplierID: fields[FieldSupplierID],
		Identifier: fields[FieldIdentifier],
		CacheKey:   fields[FieldCacheKey],
		CacheValue: fields[FieldCacheValue],
		Endpoint:   fields[FieldEndpoint],
		Payload:    json.RawMessage(fields[FieldPayload]),
	}

	if raw := fields[FieldRetryCount]; raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return Message{}, fmt.Errorf("%w: %q", ErrInvalidRetryCount, raw)
		}
		msg.RetryCount = count
	}
	if raw := fields[FieldEnqueuedAt]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err == nil {
			msg.EnqueuedAt = ts
		}
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// DeadLetter is a terminally failed Message kept for manual inspection.
type DeadLetter struct {
	ID      string
	Message Message
	// Payload is the body of the last delivery attempt, timestamps included.
	Payload  json.RawMessage
	Err      string
	FailedAt time.Time
}

// Fields returns the wire representation of the dead letter.
func (d DeadLetter) Fields() []Field {
	msg := d.Message
	if len(d.Payload) > 0 {
		msg.Payload = d.Payload
	}
	fields := msg.Fields()
	fields = append(fields,
		Field{Name: FieldError, Value: d.Err},
		Field{Name: FieldFailedAt, Value: d.FailedAt.UTC().Format(time.RFC3339Nano)},
	)

	return fields
}

// DeadLetterFromFields decodes a dead-letter entry without validating the carried message,
// so malformed originals stay readable.
func DeadLetterFromFields(id string, fields map[string]string) DeadLetter {
	retry, _ := strconv.Atoi(fields[FieldRetryCount])
	failedAt, _ := time.Parse(time.RFC3339Nano, fields[FieldFailedAt])

	return DeadLetter{
		ID: id,
		Message: Message{
			SupplierID: fields[FieldSupplierID],
			Identifier: fields[FieldIdentifier],
			CacheKey:   fields[FieldCacheKey],
			CacheValue: fields[FieldCacheValue],
			Endpoint:   fields[FieldEndpoint],
			Payload:    json.RawMessage(fields[FieldPayload]),
			RetryCount: retry,
		},
		Payload:  json.RawMessage(fields[FieldPayload]),
		Err:      fields[FieldError],
		FailedAt: failedAt,
	}
}

// FieldMap converts ordered fields to a lookup map.
func FieldMap(fields []Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}

	return out
}

// Failure captures a delivery error for a message.
type Failure struct {
	Message Message
	// Payload is the stamped body that was sent on the failed attempt.
	Payload json.RawMessage
	Err     error
}
