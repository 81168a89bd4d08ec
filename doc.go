// Package stockrelay relays supplier stock and price changes to a downstream ERP endpoint.
//
// Typical flow:
//  1. The ingestion gateway (see the gateway package) maps each supplier item, compares its sanitized
//     state with the StateStore and enqueues a Message only when the state changed.
//  2. A Relay drains a storage-specific Consumer as a member of a consumer group and forwards every
//     Message through a Handler (see the erp package).
//  3. On success the Relay writes the new state to the StateStore and acknowledges the Message; on
//     failure it re-appends the Message with an incremented retry counter, or moves it to the
//     dead-letter channel once MaxRetry is reached.
//
// Delivery is at-least-once: a worker that dies between forwarding and acknowledging leaves the
// Message pending, and it is forwarded again after re-delivery.
//
// For the Redis Streams implementation see the redisstream package; natsqueue provides a JetStream
// alternative.
package stockrelay
