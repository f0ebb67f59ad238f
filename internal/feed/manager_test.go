package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscope/bookscope/internal/bus"
	"github.com/bookscope/bookscope/internal/domain"
)

// fakeConn is a scripted venue connection. Frames pushed via push are
// returned from ReadMessage; writes are recorded.
type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) push(frame string) { c.frames <- []byte(frame) }

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

func testManager(t *testing.T, sigBus domain.SignalBus, conns ...*fakeConn) *Manager {
	t.Helper()
	var mu sync.Mutex
	next := 0
	dial := func(ctx context.Context, url string) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(conns) {
			return nil, errors.New("no scripted connection left")
		}
		c := conns[next]
		next++
		return c, nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := newManager(Config{
		URLs: map[string]string{
			"okx":   "wss://okx.test/ws",
			"bybit": "wss://bybit.test/ws",
		},
		Depth: 10,
	}, sigBus, logger, dial)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

const okxSnapshot = `{"arg":{"channel":"books"},"data":[{"bids":[["100","2"],["99","5"]],"asks":[["101","3"]]}]}`

func TestManager_Subscribe(t *testing.T) {
	conn := newFakeConn()
	m := testManager(t, bus.NewMemory(), conn)

	require.NoError(t, m.Subscribe(context.Background(), "okx", "BTC-USDT"))

	venueName, symbol, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "okx", venueName)
	assert.Equal(t, "BTC-USDT", symbol)

	// Subscribe frames for books and tickers went out on connect.
	writes := conn.written()
	require.Len(t, writes, 2)
	assert.Contains(t, string(writes[0]), `"books"`)
	assert.Contains(t, string(writes[1]), `"tickers"`)

	require.Eventually(t, func() bool {
		return m.Status() == domain.StatusConnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_SubscribeErrors(t *testing.T) {
	m := testManager(t, bus.NewMemory())

	t.Run("unknown venue", func(t *testing.T) {
		err := m.Subscribe(context.Background(), "binance", "BTC-USDT")
		assert.ErrorIs(t, err, domain.ErrUnknownVenue)
	})

	t.Run("venue without endpoint", func(t *testing.T) {
		err := m.Subscribe(context.Background(), "deribit", "BTC-USDT")
		assert.ErrorIs(t, err, domain.ErrUnknownVenue)
	})
}

func TestManager_AppliesFrames(t *testing.T) {
	conn := newFakeConn()
	m := testManager(t, bus.NewMemory(), conn)
	require.NoError(t, m.Subscribe(context.Background(), "okx", "BTC-USDT"))

	conn.push(okxSnapshot)
	require.Eventually(t, func() bool {
		return len(m.BookView(0).Bids) == 2
	}, 2*time.Second, 10*time.Millisecond)

	view := m.BookView(0)
	assert.Equal(t, 100.0, view.Bids[0].Price)
	assert.Equal(t, 101.0, view.Asks[0].Price)

	conn.push(`{"arg":{"channel":"tickers"},"data":[{"last":"100.5","volCcy24h":"42"}]}`)
	require.Eventually(t, func() bool {
		_, ok := m.Stats()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	stats, _ := m.Stats()
	assert.Equal(t, 100.5, stats.Last)
	assert.Equal(t, 42.0, stats.Vol24h)

	_, ok := m.LastFrame()
	assert.True(t, ok)
}

func TestManager_PublishesEnvelopes(t *testing.T) {
	conn := newFakeConn()
	memBus := bus.NewMemory()
	m := testManager(t, memBus, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := memBus.Subscribe(ctx, bus.ChannelBook)
	require.NoError(t, err)

	require.NoError(t, m.Subscribe(context.Background(), "okx", "BTC-USDT"))
	conn.push(okxSnapshot)

	select {
	case payload := <-ch:
		var env struct {
			Channel string `json:"channel"`
			Venue   string `json:"venue"`
			Symbol  string `json:"symbol"`
		}
		require.NoError(t, json.Unmarshal(payload, &env))
		assert.Equal(t, bus.ChannelBook, env.Channel)
		assert.Equal(t, "okx", env.Venue)
		assert.Equal(t, "BTC-USDT", env.Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("no book envelope published")
	}
}

func TestManager_SwitchResetsState(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	m := testManager(t, bus.NewMemory(), first, second)

	require.NoError(t, m.Subscribe(context.Background(), "okx", "BTC-USDT"))
	first.push(okxSnapshot)
	first.push(`{"arg":{"channel":"tickers"},"data":[{"last":"100.5","volCcy24h":"42"}]}`)
	require.Eventually(t, func() bool {
		_, ok := m.Stats()
		return ok && len(m.BookView(0).Bids) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Subscribe(context.Background(), "bybit", "ETH-USDT"))

	// The previous connection was torn down and all derived state cleared.
	select {
	case <-first.closed:
	case <-time.After(time.Second):
		t.Fatal("first connection not closed on switch")
	}
	assert.Empty(t, m.BookView(0).Bids)
	assert.Empty(t, m.BookView(0).Asks)
	_, ok := m.Stats()
	assert.False(t, ok)

	venueName, symbol, active := m.Active()
	require.True(t, active)
	assert.Equal(t, "bybit", venueName)
	assert.Equal(t, "ETH-USDT", symbol)
}

func TestManager_BookAt(t *testing.T) {
	conn := newFakeConn()
	m := testManager(t, bus.NewMemory(), conn)

	t.Run("without subscription", func(t *testing.T) {
		_, err := m.BookAt(context.Background(), 0)
		assert.ErrorIs(t, err, domain.ErrNotSubscribed)
	})

	require.NoError(t, m.Subscribe(context.Background(), "okx", "BTC-USDT"))
	conn.push(okxSnapshot)
	require.Eventually(t, func() bool {
		return len(m.BookView(0).Bids) == 2
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("immediate snapshot", func(t *testing.T) {
		snap, err := m.BookAt(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, snap.Bids, 2)
		assert.Equal(t, 100.0, snap.Bids[0].Price)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := m.BookAt(ctx, 5*time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
