package deribit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookscope/bookscope/internal/domain"
)

func TestInstrumentID(t *testing.T) {
	v := New()

	assert.Equal(t, "BTC-PERPETUAL", v.InstrumentID("BTC-USDT"))
	assert.Equal(t, "ETH-PERPETUAL", v.InstrumentID("ETH-USD"))
	assert.Equal(t, "SOL-PERPETUAL", v.InstrumentID("SOL"))
}

func TestSubscribeMessages(t *testing.T) {
	msgs := New().SubscribeMessages("BTC-PERPETUAL")

	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"public/subscribe","params":{"channels":["book.BTC-PERPETUAL.100ms"]}}`, string(msgs[0]))
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"public/subscribe","params":{"channels":["ticker.BTC-PERPETUAL.100ms"]}}`, string(msgs[1]))
}

func TestHeartbeat(t *testing.T) {
	msg, interval := New().Heartbeat()

	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"public/test","params":{}}`, string(msg))
	assert.Equal(t, heartbeatInterval, interval)
}

func TestDecode(t *testing.T) {
	v := New()

	t.Run("snapshot derives quantity from notional amount", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","method":"subscription","params":{
			"channel":"book.BTC-PERPETUAL.100ms",
			"data":{"type":"snapshot",
				"bids":[{"price":100,"amount":200},{"price":50,"amount":100}],
				"asks":[{"price":101,"amount":101}]
			}}}`

		ev := v.Decode([]byte(raw))
		snap, ok := ev.(domain.Snapshot)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, []domain.PriceLevel{{Price: 100, Quantity: 2}, {Price: 50, Quantity: 2}}, snap.Bids)
		assert.Equal(t, []domain.PriceLevel{{Price: 101, Quantity: 1}}, snap.Asks)
	})

	t.Run("change triples map to delta", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","method":"subscription","params":{
			"channel":"book.BTC-PERPETUAL.100ms",
			"data":{"type":"change",
				"bids":[["new",100,300],["delete",99,0]],
				"asks":[["change",101,202]]
			}}}`

		ev := v.Decode([]byte(raw))
		delta, ok := ev.(domain.Delta)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, []domain.PriceLevel{{Price: 100, Quantity: 3}, {Price: 99, Quantity: 0}}, delta.Bids)
		assert.Equal(t, []domain.PriceLevel{{Price: 101, Quantity: 2}}, delta.Asks)
	})

	t.Run("ticker frame", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","method":"subscription","params":{
			"channel":"ticker.BTC-PERPETUAL.100ms",
			"data":{"last_price":65000.1,"volume_usd":987654.3}}}`

		ev := v.Decode([]byte(raw))
		tick, ok := ev.(domain.Ticker)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, 65000.1, tick.Last)
		assert.Equal(t, 987654.3, tick.Vol24h)
	})

	t.Run("rpc result counts as heartbeat", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","id":1,"result":{"version":"1.2.26"}}`
		assert.IsType(t, domain.Heartbeat{}, v.Decode([]byte(raw)))
	})

	t.Run("rpc error", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","id":2,"error":{"code":-32601,"message":"method not found"}}`
		perr, ok := v.Decode([]byte(raw)).(domain.ProtocolError)
		require.True(t, ok)
		assert.Contains(t, perr.Message, "method not found")
	})

	t.Run("unknown change action fails the frame", func(t *testing.T) {
		raw := `{"jsonrpc":"2.0","params":{
			"channel":"book.BTC-PERPETUAL.100ms",
			"data":{"type":"change","bids":[["upsert",100,1]],"asks":[]}}}`
		assert.IsType(t, domain.ProtocolError{}, v.Decode([]byte(raw)))
	})
}
