// Package deribit implements the venue adapter for the Deribit v2 WebSocket,
// which speaks JSON-RPC 2.0. Deribit reports level sizes as notional amounts,
// so quantities are derived as amount/price. Book change entries are
// (action, price, amount) triples with actions new, change, and delete.
package deribit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bookscope/bookscope/internal/domain"
)

// VenueName is the canonical identifier for this venue.
const VenueName = "deribit"

const heartbeatInterval = 5 * time.Second

type Deribit struct{}

// New returns the Deribit adapter.
func New() *Deribit { return &Deribit{} }

func (*Deribit) Name() string { return VenueName }

// InstrumentID maps a spot pair to the venue's perpetual future: the quote
// currency is stripped and the fixed -PERPETUAL suffix appended.
func (*Deribit) InstrumentID(symbol string) string {
	base, _, found := strings.Cut(symbol, "-")
	if !found {
		base = symbol
	}
	return base + "-PERPETUAL"
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type channelParams struct {
	Channels []string `json:"channels"`
}

// SubscribeMessages returns the JSON-RPC subscribe frames for the book and
// ticker channels at the 100ms notification interval.
func (*Deribit) SubscribeMessages(instrument string) [][]byte {
	var out [][]byte
	for _, prefix := range []string{"book", "ticker"} {
		msg, err := json.Marshal(rpcRequest{
			JSONRPC: "2.0",
			Method:  "public/subscribe",
			Params:  channelParams{Channels: []string{prefix + "." + instrument + ".100ms"}},
		})
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Heartbeat returns a public/test call; the reply is a JSON-RPC result frame.
func (*Deribit) Heartbeat() ([]byte, time.Duration) {
	msg, _ := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: "public/test", Params: struct{}{}})
	return msg, heartbeatInterval
}

type frame struct {
	Params *struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	} `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type bookPayload struct {
	Type string          `json:"type"`
	Bids json.RawMessage `json:"bids"`
	Asks json.RawMessage `json:"asks"`
}

// snapshotLevel is a full-book entry: an object with notional amount.
type snapshotLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

type tickerPayload struct {
	LastPrice float64 `json:"last_price"`
	VolumeUSD float64 `json:"volume_usd"`
}

// Decode classifies one inbound Deribit frame.
func (*Deribit) Decode(raw []byte) domain.Event {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Ignore{}
	}
	if f.Error != nil {
		return domain.ProtocolError{Message: fmt.Sprintf("deribit: rpc error %d: %s", f.Error.Code, f.Error.Message)}
	}
	if f.Params == nil {
		if len(f.Result) > 0 {
			// Reply to our public/test keepalive (or another rpc call).
			return domain.Heartbeat{}
		}
		return domain.Ignore{}
	}

	switch {
	case strings.HasPrefix(f.Params.Channel, "book"):
		var book bookPayload
		if err := json.Unmarshal(f.Params.Data, &book); err != nil {
			return domain.ProtocolError{Message: "deribit: malformed book payload"}
		}
		switch book.Type {
		case "snapshot":
			bids, okBids := parseSnapshotLevels(book.Bids)
			asks, okAsks := parseSnapshotLevels(book.Asks)
			if !okBids || !okAsks {
				return domain.ProtocolError{Message: "deribit: malformed snapshot levels"}
			}
			return domain.Snapshot{Bids: bids, Asks: asks}
		case "change":
			bids, okBids := parseChangeLevels(book.Bids)
			asks, okAsks := parseChangeLevels(book.Asks)
			if !okBids || !okAsks {
				return domain.ProtocolError{Message: "deribit: malformed change levels"}
			}
			return domain.Delta{Bids: bids, Asks: asks}
		default:
			return domain.ProtocolError{Message: "deribit: unknown book frame type " + book.Type}
		}

	case strings.HasPrefix(f.Params.Channel, "ticker"):
		var tick tickerPayload
		if err := json.Unmarshal(f.Params.Data, &tick); err != nil {
			return domain.ProtocolError{Message: "deribit: malformed ticker payload"}
		}
		return domain.Ticker{Last: tick.LastPrice, Vol24h: tick.VolumeUSD}
	}

	return domain.Ignore{}
}

// parseSnapshotLevels converts {price, amount} objects, deriving quantity as
// amount/price.
func parseSnapshotLevels(raw json.RawMessage) ([]domain.PriceLevel, bool) {
	if len(raw) == 0 {
		return nil, true
	}
	var rows []snapshotLevel
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	levels := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if row.Price <= 0 {
			return nil, false
		}
		levels = append(levels, domain.PriceLevel{Price: row.Price, Quantity: row.Amount / row.Price})
	}
	return levels, true
}

// parseChangeLevels converts (action, price, amount) triples. A delete action
// maps to quantity zero, the normalized removal marker.
func parseChangeLevels(raw json.RawMessage) ([]domain.PriceLevel, bool) {
	if len(raw) == 0 {
		return nil, true
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	levels := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			return nil, false
		}
		var action string
		var price, amount float64
		if err := json.Unmarshal(row[0], &action); err != nil {
			return nil, false
		}
		if err := json.Unmarshal(row[1], &price); err != nil {
			return nil, false
		}
		if err := json.Unmarshal(row[2], &amount); err != nil {
			return nil, false
		}
		if price <= 0 {
			return nil, false
		}
		switch action {
		case "new", "change":
			levels = append(levels, domain.PriceLevel{Price: price, Quantity: amount / price})
		case "delete":
			levels = append(levels, domain.PriceLevel{Price: price, Quantity: 0})
		default:
			return nil, false
		}
	}
	return levels, true
}
