package model

import (
	"fmt"
	"strings"
)

// Type defines the type of the order/signal buy or sell.
type Type byte

const (
	// NoType defines a missing type.
	NoType Type = iota
	// Buy defines a buy order.
	Buy
	// Sell defines a sell order.
	Sell
)

// ParseType parses the given action, ignoring case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return NoType, fmt.Errorf("unknown action '%s': %w", s, ValidationErr)
}

// Inv inverts the type action.
func (t Type) Inv() Type {
	switch t {
	case Buy:
		return Sell
	case Sell:
		return Buy
	}
	return NoType
}

func (t Type) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return ""
}
