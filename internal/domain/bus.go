package domain

import "context"

// SignalBus is the pub/sub fabric that carries feed events (book views,
// ticker updates, status changes) to interested consumers such as the
// WebSocket hub. Payloads are opaque JSON bytes.
type SignalBus interface {
	// Publish sends a payload to all current subscribers of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a channel emitting payloads published to channel.
	// The returned channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
