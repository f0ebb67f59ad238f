package okx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscope/bookscope/internal/domain"
)

func TestInstrumentID(t *testing.T) {
	v := New()

	assert.Equal(t, "BTC-USDT", v.InstrumentID("BTC-USDT"))
	assert.Equal(t, "BTC-USDT", v.InstrumentID("BTC-USD"))
	assert.Equal(t, "ETH-USDT", v.InstrumentID("ETH-USD"))
	assert.Equal(t, "SOL-EUR", v.InstrumentID("SOL-EUR"))
}

func TestSubscribeMessages(t *testing.T) {
	msgs := New().SubscribeMessages("BTC-USDT")

	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"op":"subscribe","args":[{"channel":"books","instId":"BTC-USDT"}]}`, string(msgs[0]))
	assert.JSONEq(t, `{"op":"subscribe","args":[{"channel":"tickers","instId":"BTC-USDT"}]}`, string(msgs[1]))
}

func TestHeartbeat(t *testing.T) {
	msg, interval := New().Heartbeat()

	assert.Equal(t, "ping", string(msg))
	assert.Equal(t, heartbeatInterval, interval)
}

func TestDecode(t *testing.T) {
	v := New()

	t.Run("book frame decodes to snapshot", func(t *testing.T) {
		raw := `{"arg":{"channel":"books","instId":"BTC-USDT"},"data":[{
			"bids":[["100.5","2","0","1"],["100","3","0","1"]],
			"asks":[["101","1","0","1"]]
		}]}`

		ev := v.Decode([]byte(raw))
		snap, ok := ev.(domain.Snapshot)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, []domain.PriceLevel{{Price: 100.5, Quantity: 2}, {Price: 100, Quantity: 3}}, snap.Bids)
		assert.Equal(t, []domain.PriceLevel{{Price: 101, Quantity: 1}}, snap.Asks)
	})

	t.Run("ticker frame", func(t *testing.T) {
		raw := `{"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[{"last":"65000.1","volCcy24h":"123456.7"}]}`

		ev := v.Decode([]byte(raw))
		tick, ok := ev.(domain.Ticker)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, 65000.1, tick.Last)
		assert.Equal(t, 123456.7, tick.Vol24h)
	})

	t.Run("error event", func(t *testing.T) {
		raw := `{"event":"error","msg":"channel does not exist","code":"60018"}`

		ev := v.Decode([]byte(raw))
		perr, ok := ev.(domain.ProtocolError)
		require.True(t, ok, "got %T", ev)
		assert.Contains(t, perr.Message, "channel does not exist")
	})

	t.Run("subscription ack is ignored", func(t *testing.T) {
		raw := `{"event":"subscribe","arg":{"channel":"books","instId":"BTC-USDT"}}`
		assert.IsType(t, domain.Ignore{}, v.Decode([]byte(raw)))
	})

	t.Run("pong text is ignored", func(t *testing.T) {
		assert.IsType(t, domain.Ignore{}, v.Decode([]byte("pong")))
	})

	t.Run("non-numeric level fails the frame", func(t *testing.T) {
		raw := `{"arg":{"channel":"books"},"data":[{"bids":[["abc","1"]],"asks":[]}]}`
		assert.IsType(t, domain.ProtocolError{}, v.Decode([]byte(raw)))
	})
}
