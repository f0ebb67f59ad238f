// Package bybit implements the venue adapter for the Bybit v5 public spot
// WebSocket. Bybit is the only supported venue that distinguishes snapshot
// and delta book frames; delta frames list only changed levels, with a
// quantity of exactly zero marking level removal.
package bybit

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/bookscope/bookscope/internal/domain"
)

// VenueName is the canonical identifier for this venue.
const VenueName = "bybit"

// bookDepth selects the orderbook.<depth> topic variant.
const bookDepth = 50

const heartbeatInterval = 18 * time.Second

type Bybit struct{}

// New returns the Bybit adapter.
func New() *Bybit { return &Bybit{} }

func (*Bybit) Name() string { return VenueName }

// InstrumentID removes the hyphen: Bybit spot symbols use no separator.
func (*Bybit) InstrumentID(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "")
}

type opRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// SubscribeMessages returns the orderbook and tickers subscription frames.
func (*Bybit) SubscribeMessages(instrument string) [][]byte {
	var out [][]byte
	topics := []string{
		"orderbook." + strconv.Itoa(bookDepth) + "." + instrument,
		"tickers." + instrument,
	}
	for _, topic := range topics {
		msg, err := json.Marshal(opRequest{Op: "subscribe", Args: []string{topic}})
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Heartbeat returns the JSON ping frame Bybit expects.
func (*Bybit) Heartbeat() ([]byte, time.Duration) {
	msg, _ := json.Marshal(opRequest{Op: "ping"})
	return msg, heartbeatInterval
}

type frame struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Success *bool           `json:"success"`
	RetMsg  string          `json:"ret_msg"`
	Data    json.RawMessage `json:"data"`
}

type bookPayload struct {
	Bids [][]string `json:"b"`
	Asks [][]string `json:"a"`
}

type tickerPayload struct {
	LastPrice string `json:"lastPrice"`
	Volume24h string `json:"volume24h"`
}

// Decode classifies one inbound Bybit frame.
func (*Bybit) Decode(raw []byte) domain.Event {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Ignore{}
	}

	// Op responses: pong replies and subscription acks.
	if f.Op == "pong" || f.RetMsg == "pong" {
		return domain.Heartbeat{}
	}
	if f.Success != nil {
		if !*f.Success {
			return domain.ProtocolError{Message: "bybit: " + f.RetMsg}
		}
		return domain.Ignore{}
	}

	switch {
	case strings.HasPrefix(f.Topic, "orderbook"):
		var book bookPayload
		if err := json.Unmarshal(f.Data, &book); err != nil {
			return domain.ProtocolError{Message: "bybit: malformed book payload"}
		}
		bids, okBids := parseLevels(book.Bids)
		asks, okAsks := parseLevels(book.Asks)
		if !okBids || !okAsks {
			return domain.ProtocolError{Message: "bybit: non-numeric book level"}
		}
		switch f.Type {
		case "snapshot":
			return domain.Snapshot{Bids: bids, Asks: asks}
		case "delta":
			return domain.Delta{Bids: bids, Asks: asks}
		default:
			return domain.ProtocolError{Message: "bybit: unknown book frame type " + strconv.Quote(f.Type)}
		}

	case strings.HasPrefix(f.Topic, "tickers"):
		var tick tickerPayload
		if err := json.Unmarshal(f.Data, &tick); err != nil {
			return domain.ProtocolError{Message: "bybit: malformed ticker payload"}
		}
		last, err1 := strconv.ParseFloat(tick.LastPrice, 64)
		vol, err2 := strconv.ParseFloat(tick.Volume24h, 64)
		if err1 != nil || err2 != nil {
			return domain.ProtocolError{Message: "bybit: non-numeric ticker fields"}
		}
		return domain.Ticker{Last: last, Vol24h: vol}
	}

	return domain.Ignore{}
}

func parseLevels(rows [][]string) ([]domain.PriceLevel, bool) {
	levels := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(row[0], 64)
		qty, err2 := strconv.ParseFloat(row[1], 64)
		if err1 != nil || err2 != nil {
			return nil, false
		}
		levels = append(levels, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, true
}
