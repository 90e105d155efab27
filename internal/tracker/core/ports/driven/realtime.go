package driven

import (
	"context"

	websocketdto "freight-tracker/internal/tracker/core/domain/websocket_dto"
)

// EventHandler receives the raw data of one inbound realtime event.
type EventHandler func(event websocketdto.Event)

// IRealtime is the single duplex channel to the backend. The session manager
// owns the lifecycle: Connect when already connected reuses the open
// connection, Close invalidates it for every consumer at once.
type IRealtime interface {
	Connect(ctx context.Context, token string) error
	Connected() bool
	Close() error

	Emit(eventType string, data any) error
	// On registers a handler for an inbound event type and returns a detach
	// function. Handlers run on the read loop goroutine.
	On(eventType string, h EventHandler) (off func())
}
