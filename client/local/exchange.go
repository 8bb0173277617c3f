package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
)

// Account is the account name of the paper positions.
const Account = "paper"

// Method names a broker call for failure injection and call counting.
type Method string

const (
	ConnectCall   Method = "connect"
	QuoteCall     Method = "quote"
	PositionsCall Method = "positions"
	CostBasisCall Method = "cost-basis"
	OrderCall     Method = "order"
)

type holding struct {
	quantity    float64
	averageCost float64
}

// Exchange is a paper broker that tracks positions virtually.
// Limit orders are filled immediately at their limit price.
type Exchange struct {
	quotes    map[model.Ticker]float64
	holdings  map[model.Ticker]*holding
	orders    []model.Order
	calls     map[Method]int
	errs      map[Method]error
	quoter    api.Quoter
	latency   time.Duration
	connected bool
	mutex     *sync.Mutex
}

// NewExchange creates a new paper exchange.
func NewExchange() *Exchange {
	return &Exchange{
		quotes:   make(map[model.Ticker]float64),
		holdings: make(map[model.Ticker]*holding),
		orders:   make([]model.Order, 0),
		calls:    make(map[Method]int),
		errs:     make(map[Method]error),
		mutex:    new(sync.Mutex),
	}
}

// WithQuote sets the price for the ticker.
func (e *Exchange) WithQuote(ticker model.Ticker, price float64) *Exchange {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.quotes[ticker] = price
	return e
}

// WithPosition sets the held quantity and the average cost for the ticker.
func (e *Exchange) WithPosition(ticker model.Ticker, quantity, averageCost float64) *Exchange {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.holdings[ticker] = &holding{
		quantity:    quantity,
		averageCost: averageCost,
	}
	return e
}

// WithQuoter defines a source for prices of tickers that have no local quote.
func (e *Exchange) WithQuoter(quoter api.Quoter) *Exchange {
	e.quoter = quoter
	return e
}

// WithLatency delays every call by the given duration.
func (e *Exchange) WithLatency(latency time.Duration) *Exchange {
	e.latency = latency
	return e
}

// Fail makes every call of the given method return the error.
func (e *Exchange) Fail(method Method, err error) *Exchange {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.errs[method] = err
	return e
}

// Orders returns the submitted orders.
func (e *Exchange) Orders() []model.Order {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	orders := make([]model.Order, len(e.orders))
	copy(orders, e.orders)
	return orders
}

// Calls returns the number of calls for the method.
func (e *Exchange) Calls(method Method) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.calls[method]
}

// TotalCalls returns the number of calls for all methods.
func (e *Exchange) TotalCalls() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var total int
	for _, c := range e.calls {
		total += c
	}
	return total
}

// enter counts the call and waits for the configured latency.
func (e *Exchange) enter(ctx context.Context, method Method) error {
	e.mutex.Lock()
	e.calls[method]++
	err := e.errs[method]
	e.mutex.Unlock()
	if e.latency > 0 {
		select {
		case <-time.After(e.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (e *Exchange) Connect(ctx context.Context) error {
	if err := e.enter(ctx, ConnectCall); err != nil {
		return fmt.Errorf("could not connect: %w", err)
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.connected = true
	return nil
}

func (e *Exchange) IsConnected() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.connected
}

func (e *Exchange) Quote(ctx context.Context, ticker model.Ticker) (model.Quote, error) {
	if err := e.enter(ctx, QuoteCall); err != nil {
		return model.Quote{}, err
	}
	e.mutex.Lock()
	price, ok := e.quotes[ticker]
	e.mutex.Unlock()
	if ok {
		return model.Quote{Ticker: ticker, Price: price, Time: time.Now()}, nil
	}
	if e.quoter != nil {
		return e.quoter.Quote(ctx, ticker)
	}
	return model.Quote{}, fmt.Errorf("no quote for '%s': %w", ticker, api.UnavailableErr)
}

func (e *Exchange) Positions(ctx context.Context) ([]model.Position, error) {
	if err := e.enter(ctx, PositionsCall); err != nil {
		return nil, err
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	positions := make([]model.Position, 0, len(e.holdings))
	for ticker, h := range e.holdings {
		positions = append(positions, model.Position{
			Account:  Account,
			Ticker:   ticker,
			Quantity: h.quantity,
		})
	}
	return positions, nil
}

func (e *Exchange) CostBasis(ctx context.Context, ticker model.Ticker) (model.CostBasis, error) {
	if err := e.enter(ctx, CostBasisCall); err != nil {
		return model.CostBasis{}, err
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if h, ok := e.holdings[ticker]; ok && h.quantity > 0 {
		return model.CostBasis{Ticker: ticker, AverageCost: h.averageCost}, nil
	}
	return model.CostBasis{}, fmt.Errorf("no cost info for '%s': %w", ticker, api.UnavailableErr)
}

func (e *Exchange) PlaceOrder(ctx context.Context, order model.Order) (string, error) {
	if err := e.enter(ctx, OrderCall); err != nil {
		return "", fmt.Errorf("could not place order: %w", err)
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	h, ok := e.holdings[order.Ticker]
	if !ok {
		h = &holding{}
		e.holdings[order.Ticker] = h
	}
	switch order.Type {
	case model.Buy:
		total := h.quantity + order.Quantity
		if h.quantity > 0 {
			h.averageCost = (h.quantity*h.averageCost + order.Quantity*order.Price) / total
		} else {
			h.averageCost = order.Price
		}
		h.quantity = total
	case model.Sell:
		h.quantity -= order.Quantity
		if h.quantity == 0 {
			h.averageCost = 0
		}
	default:
		return "", fmt.Errorf("unknown order type for %s", order.Ticker)
	}
	e.orders = append(e.orders, order)
	ref := fmt.Sprintf("%s-%d", Account, len(e.orders))
	log.Debug().
		Str("ref", ref).
		Str("order", order.String()).
		Float64("position", h.quantity).
		Msg("paper order filled")
	return ref, nil
}
