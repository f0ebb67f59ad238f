package domain

// Event is the normalized classification of one inbound venue frame. It is a
// closed union: exactly the concrete types in this file implement it.
type Event interface {
	isEvent()
}

// Snapshot replaces both book sides wholesale.
type Snapshot struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// Delta lists only changed price levels. A level with Quantity == 0 removes
// that price from its side.
type Delta struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// Ticker carries the venue's market statistics update.
type Ticker struct {
	Last   float64
	Vol24h float64
}

// Heartbeat is a recognized keepalive reply from the venue.
type Heartbeat struct{}

// Ignore marks a frame that carries nothing for us: subscription acks,
// non-JSON keepalive payloads, unrecognized channels.
type Ignore struct{}

// ProtocolError marks a venue-reported error frame or a frame the decoder
// could not make sense of. It must never be merged into book or stats state.
type ProtocolError struct {
	Message string
}

func (Snapshot) isEvent()      {}
func (Delta) isEvent()         {}
func (Ticker) isEvent()        {}
func (Heartbeat) isEvent()     {}
func (Ignore) isEvent()        {}
func (ProtocolError) isEvent() {}
