package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscope/bookscope/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubFeed is a canned MarketData and Subscriber implementation.
type stubFeed struct {
	active       bool
	venue        string
	symbol       string
	status       domain.ConnStatus
	lastFrame    time.Time
	view         domain.BookView
	stats        *domain.MarketStats
	subscribeErr error
	subscribed   []string
}

func (f *stubFeed) Active() (string, string, bool) { return f.venue, f.symbol, f.active }
func (f *stubFeed) Status() domain.ConnStatus      { return f.status }
func (f *stubFeed) LastFrame() (time.Time, bool)   { return f.lastFrame, !f.lastFrame.IsZero() }
func (f *stubFeed) BookView(int) domain.BookView   { return f.view }
func (f *stubFeed) Stats() (domain.MarketStats, bool) {
	if f.stats == nil {
		return domain.MarketStats{}, false
	}
	return *f.stats, true
}

func (f *stubFeed) Subscribe(_ context.Context, venueName, symbol string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, venueName+"/"+symbol)
	return nil
}

func activeFeed() *stubFeed {
	return &stubFeed{
		active: true,
		venue:  "okx",
		symbol: "BTC-USDT",
		status: domain.StatusConnected,
		view: domain.BookView{
			Bids: []domain.DepthLevel{{Price: 99, Quantity: 2, Total: 198}},
			Asks: []domain.DepthLevel{{Price: 100, Quantity: 3, Total: 300}},
		},
	}
}

func TestBookHandler_GetBook(t *testing.T) {
	t.Run("no subscription", func(t *testing.T) {
		h := NewBookHandler(&stubFeed{}, testLogger())
		rec := httptest.NewRecorder()
		h.GetBook(rec, httptest.NewRequest(http.MethodGet, "/api/book", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "no active subscription")
	})

	t.Run("returns the view", func(t *testing.T) {
		h := NewBookHandler(activeFeed(), testLogger())
		rec := httptest.NewRecorder()
		h.GetBook(rec, httptest.NewRequest(http.MethodGet, "/api/book?depth=5", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"venue": "okx",
			"symbol": "BTC-USDT",
			"bids": [{"price": 99, "quantity": 2, "total": 198}],
			"asks": [{"price": 100, "quantity": 3, "total": 300}]
		}`, rec.Body.String())
	})
}

func TestBookHandler_GetStats(t *testing.T) {
	t.Run("no subscription", func(t *testing.T) {
		h := NewBookHandler(&stubFeed{}, testLogger())
		rec := httptest.NewRecorder()
		h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("no ticker received yet", func(t *testing.T) {
		h := NewBookHandler(activeFeed(), testLogger())
		rec := httptest.NewRecorder()
		h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns latest stats", func(t *testing.T) {
		feed := activeFeed()
		feed.stats = &domain.MarketStats{Last: 100.5, Vol24h: 42}
		h := NewBookHandler(feed, testLogger())
		rec := httptest.NewRecorder()
		h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"venue":"okx","symbol":"BTC-USDT","last":100.5,"vol_24h":42}`, rec.Body.String())
	})
}

func TestStatusHandler(t *testing.T) {
	feed := activeFeed()
	feed.lastFrame = time.Now().UTC()
	h := NewStatusHandler(feed, time.Now().Add(-90*time.Second), testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"venue":"okx"`)
	assert.Contains(t, body, `"status":"Connected"`)
	assert.Contains(t, body, `"last_frame_at"`)
	assert.Contains(t, body, `"uptime_seconds":90`)

	t.Run("disconnected omits subscription fields", func(t *testing.T) {
		h := NewStatusHandler(&stubFeed{status: domain.StatusDisconnected}, time.Now(), testLogger())
		rec := httptest.NewRecorder()
		h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"venue"`)
		assert.NotContains(t, rec.Body.String(), `"last_frame_at"`)
	})
}

func TestSubscriptionHandler_UpdateSubscription(t *testing.T) {
	put := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPut, "/api/subscription", strings.NewReader(body))
	}

	t.Run("invalid body", func(t *testing.T) {
		h := NewSubscriptionHandler(&stubFeed{}, testLogger())
		rec := httptest.NewRecorder()
		h.UpdateSubscription(rec, put("not json"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := NewSubscriptionHandler(&stubFeed{}, testLogger())
		rec := httptest.NewRecorder()
		h.UpdateSubscription(rec, put(`{"venue":"okx"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "venue and symbol are required")
	})

	t.Run("unknown venue", func(t *testing.T) {
		h := NewSubscriptionHandler(&stubFeed{subscribeErr: domain.ErrUnknownVenue}, testLogger())
		rec := httptest.NewRecorder()
		h.UpdateSubscription(rec, put(`{"venue":"binance","symbol":"BTC-USDT"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown venue")
	})

	t.Run("connect failure", func(t *testing.T) {
		h := NewSubscriptionHandler(&stubFeed{subscribeErr: errors.New("dial tcp: timeout")}, testLogger())
		rec := httptest.NewRecorder()
		h.UpdateSubscription(rec, put(`{"venue":"okx","symbol":"BTC-USDT"}`))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("switches and echoes", func(t *testing.T) {
		feed := &stubFeed{}
		h := NewSubscriptionHandler(feed, testLogger())
		rec := httptest.NewRecorder()
		h.UpdateSubscription(rec, put(`{"venue":"deribit","symbol":"BTC-USD"}`))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"venue":"deribit","symbol":"BTC-USD"}`, rec.Body.String())
		assert.Equal(t, []string{"deribit/BTC-USD"}, feed.subscribed)
	})
}

func TestSubscriptionHandler_ListVenues(t *testing.T) {
	h := NewSubscriptionHandler(&stubFeed{}, testLogger())
	rec := httptest.NewRecorder()
	h.ListVenues(rec, httptest.NewRequest(http.MethodGet, "/api/venues", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{"okx", "bybit", "deribit"} {
		assert.Contains(t, body, name)
	}
}

func TestHistoryHandler_ListRecent(t *testing.T) {
	t.Run("no store returns an empty list", func(t *testing.T) {
		h := NewHistoryHandler(nil, testLogger())
		rec := httptest.NewRecorder()
		h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/simulations/recent", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"batches":[]}`, rec.Body.String())
	})

	t.Run("empty history returns an empty list", func(t *testing.T) {
		h := NewHistoryHandler(&stubLister{}, testLogger())
		rec := httptest.NewRecorder()
		h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/simulations/recent", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"batches":[]}`, rec.Body.String())
	})

	t.Run("passes the limit through", func(t *testing.T) {
		lister := &stubLister{batches: []domain.SimulationBatch{{ID: "b1"}}}
		h := NewHistoryHandler(lister, testLogger())
		rec := httptest.NewRecorder()
		h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/simulations/recent?limit=5", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, lister.gotLimit)
		assert.Contains(t, rec.Body.String(), `"b1"`)
	})

	t.Run("store failure", func(t *testing.T) {
		h := NewHistoryHandler(&stubLister{err: errors.New("connection refused")}, testLogger())
		rec := httptest.NewRecorder()
		h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/simulations/recent", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

type stubLister struct {
	batches  []domain.SimulationBatch
	err      error
	gotLimit int
}

func (l *stubLister) ListRecent(_ context.Context, limit int) ([]domain.SimulationBatch, error) {
	l.gotLimit = limit
	return l.batches, l.err
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(testLogger())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
