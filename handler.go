package stockrelay

import "context"

// Handler delivers a single message downstream.
type Handler interface {
	// Handle forwards msg and returns nil only when the downstream confirmed success.
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle implements Handler.
func (fn HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return fn(ctx, msg)
}
