// Package okx implements the venue adapter for the OKX v5 public WebSocket.
//
// OKX book frames always carry a full replace-style payload, so every book
// message decodes to a snapshot; the venue does not surface incremental
// deltas on the channel we consume.
package okx

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/bookscope/bookscope/internal/domain"
)

// VenueName is the canonical identifier for this venue.
const VenueName = "okx"

// heartbeatInterval is the cadence for the raw "ping" keepalive.
const heartbeatInterval = 25 * time.Second

type OKX struct{}

// New returns the OKX adapter.
func New() *OKX { return &OKX{} }

func (*OKX) Name() string { return VenueName }

// InstrumentID keeps the hyphenated symbol but rewrites a raw-USD quote to
// the USDT-quoted instrument, since OKX spot quotes in the stablecoin.
func (*OKX) InstrumentID(symbol string) string {
	if strings.HasSuffix(symbol, "-USD") {
		return strings.TrimSuffix(symbol, "-USD") + "-USDT"
	}
	return symbol
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subRequest struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

// SubscribeMessages returns the books and tickers subscription frames.
func (*OKX) SubscribeMessages(instrument string) [][]byte {
	var out [][]byte
	for _, channel := range []string{"books", "tickers"} {
		msg, err := json.Marshal(subRequest{
			Op:   "subscribe",
			Args: []subArg{{Channel: channel, InstID: instrument}},
		})
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Heartbeat returns the plain-text ping OKX expects.
func (*OKX) Heartbeat() ([]byte, time.Duration) {
	return []byte("ping"), heartbeatInterval
}

type frame struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data json.RawMessage `json:"data"`
}

type bookPayload struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

type tickerPayload struct {
	Last      string `json:"last"`
	VolCcy24h string `json:"volCcy24h"`
}

// Decode classifies one inbound OKX frame. The keepalive reply is the bare
// non-JSON string "pong" and is ignored.
func (*OKX) Decode(raw []byte) domain.Event {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Ignore{}
	}
	if f.Event == "error" {
		return domain.ProtocolError{Message: "okx: " + f.Msg}
	}
	if len(f.Data) == 0 {
		// Subscription acks and other event frames carry no data.
		return domain.Ignore{}
	}

	switch f.Arg.Channel {
	case "books":
		var books []bookPayload
		if err := json.Unmarshal(f.Data, &books); err != nil || len(books) == 0 {
			return domain.ProtocolError{Message: "okx: malformed book payload"}
		}
		bids, okBids := parseLevels(books[0].Bids)
		asks, okAsks := parseLevels(books[0].Asks)
		if !okBids || !okAsks {
			return domain.ProtocolError{Message: "okx: non-numeric book level"}
		}
		return domain.Snapshot{Bids: bids, Asks: asks}

	case "tickers":
		var ticks []tickerPayload
		if err := json.Unmarshal(f.Data, &ticks); err != nil || len(ticks) == 0 {
			return domain.ProtocolError{Message: "okx: malformed ticker payload"}
		}
		last, err1 := strconv.ParseFloat(ticks[0].Last, 64)
		vol, err2 := strconv.ParseFloat(ticks[0].VolCcy24h, 64)
		if err1 != nil || err2 != nil {
			return domain.ProtocolError{Message: "okx: non-numeric ticker fields"}
		}
		return domain.Ticker{Last: last, Vol24h: vol}
	}

	return domain.Ignore{}
}

// parseLevels converts [[price, size, ...], ...] string tuples. Entries
// shorter than two fields are skipped; unparseable numbers fail the frame.
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
