package stockrelay

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

type benchBatch struct {
	msgs []Message
}

func (b *benchBatch) Messages() []Message {
	return b.msgs
}

func (b *benchBatch) Ack(_ context.Context, _ []Message) error {
	return nil
}

func (b *benchBatch) Fail(_ context.Context, _ []Failure) error {
	return nil
}

func (b *benchBatch) Dead(_ context.Context, _ []Failure) error {
	return nil
}

func (b *benchBatch) Commit(context.Context) error {
	return nil
}

func (b *benchBatch) Rollback() error {
	return nil
}

type noopConsumer struct{}

func (noopConsumer) Fetch(context.Context, FetchOptions) (Batch, error) {
	return nil, ErrNoMessages
}

type noopState struct{}

func (noopState) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (noopState) Set(context.Context, string, string, time.Duration) error { return nil }

func BenchmarkRelayProcessBatch(b *testing.B) {
	msgs := make([]Message, 100)
	for i := range msgs {
		sku := strconv.Itoa(i + 1)
		msgs[i] = Message{
			ID:         sku + "-0",
			SupplierID: "1",
			Identifier: sku,
			CacheKey:   "f:1:g:0:id:" + sku,
			CacheValue: `{"qty":3}`,
			Payload:    json.RawMessage(`{"action":"update","item":{"sku":"` + sku + `","at":"DYNAMIC_TIMESTAMP"}}`),
		}
	}
	batch := &benchBatch{msgs: msgs}
	relay := NewRelay(noopConsumer{}, HandlerFunc(func(context.Context, Message) error { return nil }), noopState{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := relay.processBatch(context.Background(), batch); err != nil {
			b.Fatalf("process batch: %v", err)
		}
	}
}
