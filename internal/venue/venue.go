// Package venue defines the per-exchange adapter contract: symbol
// translation, subscription and heartbeat wire messages, and decoding of
// inbound frames into normalized events. One sub-package implements the
// contract per supported exchange.
package venue

import (
	"fmt"
	"time"

	"github.com/bookscope/bookscope/internal/domain"
	"github.com/bookscope/bookscope/internal/venue/bybit"
	"github.com/bookscope/bookscope/internal/venue/deribit"
	"github.com/bookscope/bookscope/internal/venue/okx"
)

// Venue is the adapter + decoder for one exchange. Implementations are pure
// mapping logic: no network I/O happens here.
type Venue interface {
	// Name returns the canonical venue identifier ("okx", "bybit", "deribit").
	Name() string

	// InstrumentID translates a canonical symbol like "BTC-USDT" into the
	// venue's native instrument identifier.
	InstrumentID(symbol string) string

	// SubscribeMessages returns the outbound frames that subscribe the book
	// and ticker channels for the given native instrument. Field names and
	// envelopes are venue-imposed wire contracts and are reproduced exactly.
	SubscribeMessages(instrument string) [][]byte

	// Heartbeat returns the keepalive payload and the cadence at which it
	// must be sent.
	Heartbeat() (payload []byte, interval time.Duration)

	// Decode classifies one raw inbound frame. It never returns a Go error:
	// malformed payloads become domain.ProtocolError and unrecognized or
	// keepalive frames become domain.Ignore, so a single bad frame cannot
	// tear down the feed.
	Decode(raw []byte) domain.Event
}

// ForName returns the adapter for a venue identifier.
func ForName(name string) (Venue, error) {
	switch name {
	case okx.VenueName:
		return okx.New(), nil
	case bybit.VenueName:
		return bybit.New(), nil
	case deribit.VenueName:
		return deribit.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVenue, name)
	}
}

// Names lists the supported venue identifiers.
func Names() []string {
	return []string{okx.VenueName, bybit.VenueName, deribit.VenueName}
}
