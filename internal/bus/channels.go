package bus

// Bus channel names. The WebSocket hub mirrors every message published on
// these channels to its connected clients.
const (
	ChannelBook       = "market.book"
	ChannelTicker     = "market.ticker"
	ChannelStatus     = "market.status"
	ChannelSimulation = "market.simulation"
)

// Envelope is the JSON frame published on the bus and forwarded verbatim to
// WebSocket clients.
type Envelope struct {
	Channel string `json:"channel"`
	Venue   string `json:"venue,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Data    any    `json:"data"`
}
