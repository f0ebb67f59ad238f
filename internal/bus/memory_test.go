package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PublishSubscribe(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "test")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "test", []byte("hello")))

	select {
	case msg := <-ch:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemory_ChannelIsolation(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := m.Subscribe(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "b", []byte("for b")))

	select {
	case msg := <-a:
		t.Fatalf("unexpected message on channel a: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemory_SubscribeCancellation(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, "test")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "channel should be closed after cancellation")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancellation")
	}

	// Publishing after the subscriber left must not panic or block.
	assert.NoError(t, m.Publish(context.Background(), "test", []byte("late")))
}

func TestMemory_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := m.Subscribe(ctx, "test")
	require.NoError(t, err)

	// Fill well past the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = m.Publish(ctx, "test", []byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
