package redisstream

import "errors"

var (
	// ErrPoolRequired is returned when a nil pool is provided.
	ErrPoolRequired = errors.New("stockrelay redis: pool is required")
	// ErrStreamRequired is returned when a stream name is empty.
	ErrStreamRequired = errors.New("stockrelay redis: stream name is required")
	// ErrGroupRequired is returned when the consumer group name is empty.
	ErrGroupRequired = errors.New("stockrelay redis: group name is required")
	// ErrSameStream is returned when the dead-letter stream equals the main stream.
	ErrSameStream = errors.New("stockrelay redis: dead-letter stream must differ from the main stream")
	// ErrTransactionAborted is returned when EXEC returns a nil reply.
	ErrTransactionAborted = errors.New("stockrelay redis: transaction aborted")
	// ErrUnexpectedReply is returned when a stream reply has an unknown shape.
	ErrUnexpectedReply = errors.New("stockrelay redis: unexpected reply")
)
