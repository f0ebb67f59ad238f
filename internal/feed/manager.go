// Package feed owns the live market data connection. At most one venue and
// symbol pair is active at a time; switching tears down the previous
// subscription and resets all derived state before the new one connects.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bookscope/bookscope/internal/book"
	"github.com/bookscope/bookscope/internal/domain"
	"github.com/bookscope/bookscope/internal/market"
	"github.com/bookscope/bookscope/internal/venue"
)

// Conn is the subset of *websocket.Conn the feed uses, extracted so tests can
// substitute a scripted connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a connection to a venue WebSocket endpoint.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// gorillaDial is the production dialer.
func gorillaDial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	c, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Config holds the feed endpoints and presentation depth.
type Config struct {
	// URLs maps venue name to its public WebSocket endpoint.
	URLs map[string]string
	// Depth is the number of levels per side included in published and
	// served book views.
	Depth int
}

// Manager multiplexes the single active subscription and exposes the derived
// book and ticker state. The book store and stats cache are shared across
// subscriptions and reset on every switch, so a consumer holding a stale
// reference observes an empty book rather than another market's data.
type Manager struct {
	cfg    Config
	bus    domain.SignalBus
	logger *slog.Logger
	dial   DialFunc

	store *book.Store
	stats *market.StatsCache

	mu     sync.RWMutex
	active *subscription
}

// NewManager creates a Manager using the production WebSocket dialer.
func NewManager(cfg Config, sigBus domain.SignalBus, logger *slog.Logger) *Manager {
	return newManager(cfg, sigBus, logger, gorillaDial)
}

func newManager(cfg Config, sigBus domain.SignalBus, logger *slog.Logger, dial DialFunc) *Manager {
	if cfg.Depth <= 0 {
		cfg.Depth = 10
	}
	return &Manager{
		cfg:    cfg,
		bus:    sigBus,
		logger: logger.With(slog.String("component", "feed")),
		dial:   dial,
		store:  book.NewStore(),
		stats:  market.NewStatsCache(),
	}
}

// Subscribe switches the active subscription to the given venue and symbol.
// The previous subscription, if any, is torn down first and the shared book
// and ticker state is cleared before the new connection is dialed. The
// passed context bounds only the initial dial; the subscription itself lives
// until the next switch or Close.
func (m *Manager) Subscribe(ctx context.Context, venueName, symbol string) error {
	v, err := venue.ForName(venueName)
	if err != nil {
		return err
	}
	url, ok := m.cfg.URLs[venueName]
	if !ok {
		return fmt.Errorf("feed: no endpoint configured for %s: %w", venueName, domain.ErrUnknownVenue)
	}

	m.mu.Lock()
	if m.active != nil {
		m.active.stop()
		m.active = nil
	}
	m.store.Reset()
	m.stats.Reset()

	sub := newSubscription(v, symbol, url, m.cfg.Depth, m.store, m.stats, m.bus, m.dial, m.logger)
	if err := sub.start(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	m.active = sub
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "subscription switched",
		slog.String("venue", venueName),
		slog.String("symbol", symbol),
	)
	return nil
}

// Close tears down the active subscription, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.stop()
		m.active = nil
	}
	m.store.Reset()
	m.stats.Reset()
	return nil
}

// Active returns the current venue and symbol.
func (m *Manager) Active() (venueName, symbol string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return "", "", false
	}
	return m.active.venue.Name(), m.active.symbol, true
}

// Status reports the connection state of the active subscription.
func (m *Manager) Status() domain.ConnStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return domain.StatusDisconnected
	}
	return m.active.connStatus()
}

// LastFrame returns when the active subscription last received any frame.
func (m *Manager) LastFrame() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return time.Time{}, false
	}
	return m.active.lastFrameAt()
}

// BookView returns the top levels per side with cumulative notional totals.
// A non-positive depth falls back to the configured default.
func (m *Manager) BookView(depth int) domain.BookView {
	if depth <= 0 {
		depth = m.cfg.Depth
	}
	return m.store.View(depth)
}

// Stats returns the latest ticker statistics for the active subscription.
func (m *Manager) Stats() (domain.MarketStats, bool) {
	return m.stats.Get()
}

// BookAt waits out the given delay, then snapshots whatever the shared book
// holds at that moment. If the subscription switched during the wait the
// store was reset, so the caller observes an empty book rather than levels
// from the wrong market.
func (m *Manager) BookAt(ctx context.Context, delay time.Duration) (domain.OrderBook, error) {
	m.mu.RLock()
	subscribed := m.active != nil
	m.mu.RUnlock()
	if !subscribed {
		return domain.OrderBook{}, domain.ErrNotSubscribed
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.OrderBook{}, ctx.Err()
		case <-timer.C:
		}
	}
	return m.store.Snapshot(), nil
}
