package domain

import "errors"

var (
	ErrNoMarketPrice     = errors.New("market price not available")
	ErrInvalidSimRequest = errors.New("invalid simulation request")
	ErrUnknownVenue      = errors.New("unknown venue")
	ErrNotSubscribed     = errors.New("no active subscription")
	ErrWSDisconnect      = errors.New("websocket disconnected")
)
