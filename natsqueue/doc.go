// Package natsqueue implements the stockrelay queue on NATS JetStream.
//
// A durable pull consumer plays the role of the consumer group: every relay worker bound to the
// same durable name shares the work. Messages are JSON objects holding the same flat fields as the
// Redis stream entries. Retries are published back to the work subject and terminal failures to a
// separate dead-letter stream. Unacknowledged messages are redelivered by JetStream after AckWait,
// so no explicit reclaim is needed.
package natsqueue
