// Package bus provides the signal bus implementations used to fan market
// events out to the WebSocket hub and any other in-process consumers.
package bus

import (
	"context"
	"sync"

	"github.com/bookscope/bookscope/internal/domain"
)

// Memory is an in-process implementation of domain.SignalBus. Publishes are
// non-blocking: a subscriber whose buffer is full misses the message rather
// than stalling the decode pipeline.
type Memory struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan []byte)}
}

// Publish delivers payload to every current subscriber of channel.
func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber for channel. The returned channel is
// closed and deregistered when ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		subs := m.subs[channel]
		for i, sub := range subs {
			if sub == ch {
				m.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*Memory)(nil)
