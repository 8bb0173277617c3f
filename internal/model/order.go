package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderType defines the price conditions for an order i.e. market price, limit price etc ...
type OrderType byte

const (
	// NoOrderType means the order type is missing
	NoOrderType OrderType = iota
	// Market defines a market order
	Market
	// Limit defines a limit order
	Limit
)

// TimeInForce defines how long an order stays active.
type TimeInForce string

const (
	// GTC is good-till-canceled.
	GTC TimeInForce = "GTC"
	// Day is valid for the current session only.
	Day TimeInForce = "DAY"
)

// Order defines a fully specified order intent for the broker.
type Order struct {
	ID          string
	Ticker      Ticker
	Type        Type
	OType       OrderType
	Quantity    float64
	Price       float64
	TimeInForce TimeInForce
	OutsideRTH  bool
	Time        time.Time
}

// NewOrder creates a new order for the given ticker.
func NewOrder(ticker Ticker) *Order {
	return &Order{
		Ticker: ticker,
	}
}

// WithType defines the type of the order.
func (o *Order) WithType(t Type) *Order {
	o.Type = t
	return o
}

// Buy defines an order of type buy.
func (o *Order) Buy() *Order {
	return o.WithType(Buy)
}

// Sell defines an order of type sell.
func (o *Order) Sell() *Order {
	return o.WithType(Sell)
}

// Limit defines a limit order at the given price.
func (o *Order) Limit(price float64) *Order {
	o.OType = Limit
	o.Price = price
	return o
}

// Market defines an order with market order type.
func (o *Order) Market() *Order {
	o.OType = Market
	return o
}

// WithQuantity defines the quantity for this order.
func (o *Order) WithQuantity(q float64) *Order {
	o.Quantity = q
	return o
}

// GoodTillCanceled keeps the order active until it is filled or canceled.
func (o *Order) GoodTillCanceled() *Order {
	o.TimeInForce = GTC
	return o
}

// OutsideRegularHours allows the order to fill outside the regular trading session.
func (o *Order) OutsideRegularHours() *Order {
	o.OutsideRTH = true
	return o
}

// Create creates the order based on the given details
// this will also make a sanity check on the current parameters given.
func (o *Order) Create() (Order, error) {
	if o.Ticker == NoTicker {
		return Order{}, fmt.Errorf("order without ticker: %w", ValidationErr)
	}
	if o.Type == NoType {
		return Order{}, fmt.Errorf("order without type for %s: %w", o.Ticker, ValidationErr)
	}
	if o.Quantity <= 0 {
		return Order{}, fmt.Errorf("quantity must be larger than '0': %f: %w", o.Quantity, ValidationErr)
	}
	switch o.OType {
	case Limit:
		if o.Price <= 0 {
			return Order{}, fmt.Errorf("limit price must be larger than '0': %f: %w", o.Price, ValidationErr)
		}
	case Market:
	default:
		return Order{}, fmt.Errorf("cannot create order without order type: %v: %w", o.OType, ValidationErr)
	}
	if o.TimeInForce == "" {
		o.TimeInForce = Day
	}
	if o.Time.IsZero() {
		o.Time = time.Now()
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return *o, nil
}

// Value returns the notional value of the order.
func (o Order) Value() float64 {
	return o.Quantity * o.Price
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %v @ %v [%s]", o.Type, o.Ticker, o.Quantity, o.Price, o.TimeInForce)
}
