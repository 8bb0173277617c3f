package model

import (
	"time"

	"github.com/google/uuid"
)

// Signal is an inbound instruction to act on a ticker.
type Signal struct {
	ID     string
	Ticker Ticker
	Action Type
	Time   time.Time
}

// NewSignal creates a new signal with a unique ID.
func NewSignal(ticker string, action Type) Signal {
	return Signal{
		ID:     uuid.New().String(),
		Ticker: NewTicker(ticker),
		Action: action,
		Time:   time.Now(),
	}
}
