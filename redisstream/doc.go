// Package redisstream implements the stockrelay queue, dead-letter channel and state store on Redis.
//
// Messages live in a stream read through a consumer group (XREADGROUP). Settling a message removes
// it from the stream (XACK + XDEL), so the stream length equals the unsettled backlog. Retries are
// re-appended to the same stream and terminal failures are appended to a separate dead-letter stream.
// All queue mutations of a batch are applied in one MULTI/EXEC transaction on Commit.
//
// Item states are plain string keys written with SET EX.
package redisstream
