package natsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmie/stockrelay"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, "ERP_UPDATES", cfg.Stream)
	assert.Equal(t, "erp.updates", cfg.Subject)
	assert.Equal(t, "ERP_DEAD_LETTER", cfg.DeadLetterStream)
	assert.Equal(t, "erp_group", cfg.Durable)
	assert.Equal(t, time.Minute, cfg.AckWait)
	require.NoError(t, cfg.validate())
}

func TestConfigRejectsSharedSubject(t *testing.T) {
	var cfg Config
	WithDeadLetterStream("DL", "erp.updates")(&cfg)

	assert.ErrorIs(t, cfg.withDefaults().validate(), ErrSameStream)
}

func TestNewQueueRequiresConn(t *testing.T) {
	_, err := NewQueue(nil)
	assert.ErrorIs(t, err, ErrConnRequired)
}

func TestCodecRoundTrip(t *testing.T) {
	msg := stockrelay.Message{
		SupplierID: "4",
		Identifier: "SKU-9",
		CacheKey:   "f:4:g:0:id:SKU-9",
		CacheValue: `{"qty":2}`,
		Payload:    json.RawMessage(`{"item":{"qty":2}}`),
		RetryCount: 3,
	}

	data, err := encodeFields(msg.Fields())
	require.NoError(t, err)

	got, err := decodeMessage("12", data)
	require.NoError(t, err)
	assert.Equal(t, "12", got.ID)
	assert.Equal(t, 3, got.RetryCount)
	assert.JSONEq(t, string(msg.Payload), string(got.Payload))
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	_, err := decodeMessage("1", []byte("not json"))
	assert.Error(t, err)

	_, err = decodeMessage("1", []byte(`{"supplier_id":"1"}`))
	assert.ErrorIs(t, err, stockrelay.ErrIdentifierRequired)
}

func TestBatchRejectsForeignMessages(t *testing.T) {
	b := &batch{queue: &Queue{cfg: Config{}.withDefaults()}, raw: map[string]*nats.Msg{}}

	err := b.Ack(context.Background(), []stockrelay.Message{{ID: "99"}})
	assert.True(t, errors.Is(err, ErrUnknownMessage))

	err = b.Fail(context.Background(), []stockrelay.Failure{{Message: stockrelay.Message{ID: "99"}}})
	assert.ErrorIs(t, err, ErrUnknownMessage)
	assert.Empty(t, b.pubs)
}

func TestBatchStagesPublications(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &Queue{cfg: Config{Clock: fixedClock{now: now}}.withDefaults()}
	b := &batch{queue: q, raw: map[string]*nats.Msg{"1": {}, "2": {}}}
	retry := stockrelay.Message{ID: "1", SupplierID: "1", Identifier: "A", Payload: json.RawMessage(`{}`), RetryCount: 1}
	dead := stockrelay.Message{ID: "2", SupplierID: "1", Identifier: "B", Payload: json.RawMessage(`{}`), RetryCount: 5}

	require.NoError(t, b.Fail(context.Background(), []stockrelay.Failure{{Message: retry, Err: errors.New("timeout")}}))
	require.NoError(t, b.Dead(context.Background(), []stockrelay.Failure{{Message: dead, Err: errors.New("rejected")}}))

	require.Len(t, b.pubs, 2)
	assert.Equal(t, "erp.updates", b.pubs[0].subject)
	assert.Equal(t, "2", stockrelay.FieldMap(b.pubs[0].fields)[stockrelay.FieldRetryCount])
	assert.Equal(t, "erp.dead_letter", b.pubs[1].subject)
	deadFields := stockrelay.FieldMap(b.pubs[1].fields)
	assert.Equal(t, "rejected", deadFields[stockrelay.FieldError])
	assert.Equal(t, "2025-03-01T10:00:00Z", deadFields[stockrelay.FieldFailedAt])
	assert.Equal(t, []string{"1", "2"}, b.settle)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
