package api

import (
	"context"
	"errors"

	"github.com/drakos74/signal-router/internal/model"
)

// UnavailableErr signals that the broker has no data for the request i.e. no quote or cost info.
var UnavailableErr = errors.New("not available")

// Quoter provides the latest price for a ticker.
type Quoter interface {
	// Quote returns the latest price, or UnavailableErr if there is none.
	Quote(ctx context.Context, ticker model.Ticker) (model.Quote, error)
}

// Broker is the contract expected from the brokerage connectivity.
// Implementations sharing a single session must be safe for concurrent use.
// Every call must return once its context is done. The engine stops waiting at the deadline either way,
// but an order that outlives it keeps its ticker locked until the broker returns.
type Broker interface {
	Quoter
	// Connect opens the broker session.
	Connect(ctx context.Context) error
	// IsConnected returns true if the session is open.
	IsConnected() bool
	// Positions returns all positions visible to the session, across all tickers and accounts.
	Positions(ctx context.Context) ([]model.Position, error)
	// CostBasis returns the average cost for the held quantity of the ticker, or UnavailableErr.
	CostBasis(ctx context.Context, ticker model.Ticker) (model.CostBasis, error)
	// PlaceOrder submits the order and returns the broker reference.
	// There is no fill confirmation.
	PlaceOrder(ctx context.Context, order model.Order) (string, error)
}
