package domain

// ConnStatus is the subscription connection state exposed to the
// presentation layer.
type ConnStatus string

const (
	StatusDisconnected ConnStatus = "Disconnected"
	StatusConnecting   ConnStatus = "Connecting"
	StatusConnected    ConnStatus = "Connected"
	StatusError        ConnStatus = "Error"
)
