package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bookscope/bookscope/internal/book"
	"github.com/bookscope/bookscope/internal/bus"
	"github.com/bookscope/bookscope/internal/domain"
	"github.com/bookscope/bookscope/internal/market"
	"github.com/bookscope/bookscope/internal/venue"
)

const (
	// writeWait bounds every write to the venue connection.
	writeWait = 10 * time.Second

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// subscription is one live venue connection. It owns exactly one reader
// goroutine; writes go out either during connect (subscribe frames) or from
// the per-connection heartbeat goroutine, never both at once.
type subscription struct {
	venue  venue.Venue
	symbol string
	url    string
	depth  int
	store  *book.Store
	stats  *market.StatsCache
	bus    domain.SignalBus
	dial   DialFunc
	logger *slog.Logger

	mu        sync.RWMutex
	status    domain.ConnStatus
	lastFrame time.Time
	conn      Conn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSubscription(v venue.Venue, symbol, url string, depth int, store *book.Store, stats *market.StatsCache, sigBus domain.SignalBus, dial DialFunc, logger *slog.Logger) *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscription{
		venue:  v,
		symbol: symbol,
		url:    url,
		depth:  depth,
		store:  store,
		stats:  stats,
		bus:    sigBus,
		dial:   dial,
		logger: logger.With(slog.String("venue", v.Name()), slog.String("symbol", symbol)),
		status: domain.StatusDisconnected,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// start dials the venue, sends the subscribe frames, and spawns the serve
// loop. The passed context bounds only this initial connect.
func (s *subscription) start(ctx context.Context) error {
	s.setStatus(domain.StatusConnecting)
	c, err := s.connect(ctx)
	if err != nil {
		s.setStatus(domain.StatusError)
		close(s.done)
		return err
	}
	go s.run(c)
	return nil
}

// stop tears the subscription down and blocks until the reader goroutine has
// exited, so the caller can safely reset shared state afterwards.
func (s *subscription) stop() {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *subscription) connStatus() domain.ConnStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *subscription) lastFrameAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFrame, !s.lastFrame.IsZero()
}

func (s *subscription) connect(ctx context.Context) (Conn, error) {
	c, err := s.dial(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", s.venue.Name(), err)
	}
	instrument := s.venue.InstrumentID(s.symbol)
	for _, msg := range s.venue.SubscribeMessages(instrument) {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("feed: subscribe %s: %w", s.venue.Name(), err)
		}
	}
	return c, nil
}

// run serves connections until the subscription is stopped, reconnecting
// with exponential backoff after a read failure.
func (s *subscription) run(c Conn) {
	defer close(s.done)
	for {
		err := s.serve(c)
		if s.ctx.Err() != nil {
			s.setStatus(domain.StatusDisconnected)
			return
		}
		s.logger.Warn("feed connection lost", slog.Any("error", err))
		s.setStatus(domain.StatusError)

		c = s.redial()
		if c == nil {
			s.setStatus(domain.StatusDisconnected)
			return
		}
		// Stale levels from the dropped connection must not survive into
		// the fresh snapshot stream.
		s.store.Reset()
	}
}

// serve reads frames from one connection until it fails. A per-connection
// heartbeat goroutine keeps the venue from idling us out.
func (s *subscription) serve(c Conn) error {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
	defer c.Close()

	hbCtx, stopHeartbeat := context.WithCancel(s.ctx)
	defer stopHeartbeat()
	go s.heartbeatLoop(hbCtx, c)

	s.setStatus(domain.StatusConnected)
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read %s: %w", s.venue.Name(), err)
		}
		s.markFrame()
		s.handleFrame(raw)
	}
}

// redial retries the connection with exponential backoff until it succeeds
// or the subscription is stopped.
func (s *subscription) redial() Conn {
	delay := reconnectDelay
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-time.After(delay):
		}

		s.setStatus(domain.StatusConnecting)
		ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
		c, err := s.connect(ctx)
		cancel()
		if err == nil {
			return c
		}
		s.logger.Warn("feed reconnect failed", slog.Any("error", err))
		s.setStatus(domain.StatusError)

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (s *subscription) heartbeatLoop(ctx context.Context, c Conn) {
	msg, interval := s.venue.Heartbeat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one inbound frame and applies it to the shared state,
// publishing the derived view on the bus.
func (s *subscription) handleFrame(raw []byte) {
	switch ev := s.venue.Decode(raw).(type) {
	case domain.Snapshot:
		s.store.ApplySnapshot(ev.Bids, ev.Asks)
		s.publish(bus.ChannelBook, s.store.View(s.depth))
	case domain.Delta:
		s.store.ApplyDelta(ev.Bids, ev.Asks)
		s.publish(bus.ChannelBook, s.store.View(s.depth))
	case domain.Ticker:
		s.stats.Replace(ev.Last, ev.Vol24h)
		s.publish(bus.ChannelTicker, domain.MarketStats{Last: ev.Last, Vol24h: ev.Vol24h})
	case domain.Heartbeat:
		// Frame timestamp already recorded; nothing else to do.
	case domain.ProtocolError:
		s.logger.Warn("venue protocol error", slog.String("message", ev.Message))
	case domain.Ignore:
	}
}

func (s *subscription) markFrame() {
	s.mu.Lock()
	s.lastFrame = time.Now()
	s.mu.Unlock()
}

type statusPayload struct {
	Status domain.ConnStatus `json:"status"`
}

func (s *subscription) setStatus(status domain.ConnStatus) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()
	if changed {
		s.publish(bus.ChannelStatus, statusPayload{Status: status})
	}
}

func (s *subscription) publish(channel string, data any) {
	payload, err := json.Marshal(bus.Envelope{
		Channel: channel,
		Venue:   s.venue.Name(),
		Symbol:  s.symbol,
		Data:    data,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(s.ctx, channel, payload); err != nil {
		s.logger.Warn("bus publish failed", slog.String("channel", channel), slog.Any("error", err))
	}
}
