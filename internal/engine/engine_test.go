package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/drakos74/signal-router/client/local"
	"github.com/drakos74/signal-router/internal/api"
	"github.com/drakos74/signal-router/internal/model"
	localjson "github.com/drakos74/signal-router/internal/storage/file/json"
	"github.com/drakos74/signal-router/internal/tickers"
	user "github.com/drakos74/signal-router/user/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	ticker string
	size   float64
	profit float64
}

func newEngine(t *testing.T, broker api.Broker, configs ...config) (*Engine, *user.MockUser) {
	store, err := tickers.NewStore(localjson.NewLocalStorage())
	require.NoError(t, err)
	for _, cfg := range configs {
		_, err := store.Set(cfg.ticker, cfg.size, cfg.profit)
		require.NoError(t, err)
	}
	u := user.NewMockUser()
	return New(store, broker, u), u
}

func TestEngine_ConfigNotFound(t *testing.T) {

	for _, action := range []model.Type{model.Buy, model.Sell} {
		t.Run(action.String(), func(t *testing.T) {
			exchange := local.NewExchange().
				WithQuote("TSLA", 100).
				WithPosition("TSLA", 10, 50)
			e, u := newEngine(t, exchange, config{"AAPL", 1000, 5})

			outcome := e.Evaluate(context.Background(), model.NewSignal("tsla", action))
			assert.Equal(t, ConfigNotFound, outcome.Status)
			assert.Error(t, outcome.Err)
			assert.Equal(t, 0, exchange.TotalCalls())
			_, err := u.Next(time.Second)
			assert.NoError(t, err)
		})
	}
}

func TestEngine_InvalidSignal(t *testing.T) {

	exchange := local.NewExchange().WithQuote("AAPL", 100)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5})

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.NoType))
	assert.Equal(t, InvalidSignal, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, model.ValidationErr))
	assert.Equal(t, 0, exchange.TotalCalls())
}

func TestEngine_Buy(t *testing.T) {

	type test struct {
		size     float64
		exchange *local.Exchange
		status   Status
		quantity float64
		orders   int
	}

	tests := map[string]test{
		"quantity": {
			size:     1000,
			exchange: local.NewExchange().WithQuote("AAPL", 50),
			status:   Submitted,
			quantity: 20,
			orders:   1,
		},
		"round-half-away-from-zero": {
			size:     1000,
			exchange: local.NewExchange().WithQuote("AAPL", 400),
			status:   Submitted,
			quantity: 3,
			orders:   1,
		},
		"round-down": {
			size:     1000,
			exchange: local.NewExchange().WithQuote("AAPL", 300),
			status:   Submitted,
			quantity: 3,
			orders:   1,
		},
		"zero-price": {
			size:     1000,
			exchange: local.NewExchange().WithQuote("AAPL", 0),
			status:   QuoteUnavailable,
		},
		"no-quote": {
			size:     1000,
			exchange: local.NewExchange(),
			status:   QuoteUnavailable,
		},
		"quantity-too-small": {
			size:     100,
			exchange: local.NewExchange().WithQuote("AAPL", 500),
			status:   QuantityTooSmall,
		},
		"order-rejected": {
			size: 1000,
			exchange: local.NewExchange().
				WithQuote("AAPL", 50).
				Fail(local.OrderCall, fmt.Errorf("insufficient funds")),
			status:   BrokerSubmissionError,
			quantity: 20,
		},
		"quote-failure": {
			size: 1000,
			exchange: local.NewExchange().
				Fail(local.QuoteCall, fmt.Errorf("connection reset")),
			status: BrokerCallError,
		},
		"connect-failure": {
			size: 1000,
			exchange: local.NewExchange().
				WithQuote("AAPL", 50).
				Fail(local.ConnectCall, fmt.Errorf("refused")),
			status: BrokerCallError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e, _ := newEngine(t, tt.exchange, config{"AAPL", tt.size, 5})
			outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
			assert.Equal(t, tt.status, outcome.Status, "%+v", outcome.Err)
			assert.Equal(t, tt.quantity, outcome.Quantity)

			orders := tt.exchange.Orders()
			require.Equal(t, tt.orders, len(orders))
			for _, order := range orders {
				assert.Equal(t, model.Buy, order.Type)
				assert.Equal(t, model.Limit, order.OType)
				assert.Equal(t, tt.quantity, order.Quantity)
				assert.Equal(t, outcome.Price, order.Price)
				assert.Equal(t, model.GTC, order.TimeInForce)
				assert.True(t, order.OutsideRTH)
				assert.NotEmpty(t, outcome.Ref)
			}
		})
	}
}

// accounts reports the paper holdings split across accounts.
type accounts struct {
	*local.Exchange
	positions []model.Position
}

func (a accounts) Positions(ctx context.Context) ([]model.Position, error) {
	if _, err := a.Exchange.Positions(ctx); err != nil {
		return nil, err
	}
	return a.positions, nil
}

func TestEngine_Sell(t *testing.T) {

	type test struct {
		profit   float64
		broker   api.Broker
		status   Status
		quantity float64
		ret      float64
	}

	tests := map[string]test{
		"take-profit": {
			profit: 5,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 100),
			status:   Submitted,
			quantity: 10,
			ret:      10,
		},
		"exact-target": {
			profit: 10,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 100),
			status:   Submitted,
			quantity: 10,
			ret:      10,
		},
		"negative-target": {
			profit: -5,
			broker: local.NewExchange().
				WithQuote("AAPL", 98).
				WithPosition("AAPL", 10, 100),
			status:   Submitted,
			quantity: 10,
			ret:      -2,
		},
		"below-target": {
			profit: 15,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 100),
			status:   BelowProfitTarget,
			quantity: 10,
			ret:      10,
		},
		"no-position": {
			profit: -100,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("TSLA", 10, 100),
			status: NoPosition,
		},
		"no-position-no-quote": {
			profit: 5,
			broker: local.NewExchange(),
			status: NoPosition,
		},
		"short-position": {
			profit: 5,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", -5, 100),
			status:   NoPosition,
			quantity: -5,
		},
		"no-quote": {
			profit: 5,
			broker: local.NewExchange().
				WithPosition("AAPL", 10, 100),
			status:   QuoteUnavailable,
			quantity: 10,
		},
		"no-cost": {
			profit: 5,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 0),
			status:   CostBasisUnavailable,
			quantity: 10,
		},
		"positions-failure": {
			profit: 5,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 100).
				Fail(local.PositionsCall, fmt.Errorf("session lost")),
			status: BrokerCallError,
		},
		"cost-failure": {
			profit: 5,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 100).
				Fail(local.CostBasisCall, fmt.Errorf("session lost")),
			status:   BrokerCallError,
			quantity: 10,
		},
		"order-rejected": {
			profit: 5,
			broker: local.NewExchange().
				WithQuote("AAPL", 110).
				WithPosition("AAPL", 10, 100).
				Fail(local.OrderCall, fmt.Errorf("market closed")),
			status:   BrokerSubmissionError,
			quantity: 10,
			ret:      10,
		},
		"aggregate-accounts": {
			profit: 5,
			broker: accounts{
				Exchange: local.NewExchange().
					WithQuote("AAPL", 110).
					WithPosition("AAPL", 10, 100),
				positions: []model.Position{
					{Account: "a", Ticker: "AAPL", Quantity: 4},
					{Account: "b", Ticker: "AAPL", Quantity: 6},
					{Account: "b", Ticker: "TSLA", Quantity: 100},
				},
			},
			status:   Submitted,
			quantity: 10,
			ret:      10,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e, _ := newEngine(t, tt.broker, config{"AAPL", 1000, tt.profit})
			outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Sell))
			assert.Equal(t, tt.status, outcome.Status, "%+v", outcome.Err)
			assert.Equal(t, tt.quantity, outcome.Quantity)
			assert.InDelta(t, tt.ret, outcome.ReturnPercent, 1e-9)
			assert.Equal(t, tt.profit, outcome.Target)
			if tt.status == Submitted {
				require.NotNil(t, outcome.Order)
				assert.Equal(t, model.Sell, outcome.Order.Type)
				assert.Equal(t, tt.quantity, outcome.Order.Quantity)
				assert.Equal(t, outcome.Price, outcome.Order.Price)
				assert.Equal(t, model.GTC, outcome.Order.TimeInForce)
				assert.True(t, outcome.Order.OutsideRTH)
			} else if tt.status != BrokerSubmissionError {
				assert.Nil(t, outcome.Order)
			}
		})
	}
}

func TestEngine_NoPositionSkipsCostBasis(t *testing.T) {

	exchange := local.NewExchange().WithQuote("AAPL", 110)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5})

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Sell))
	assert.Equal(t, NoPosition, outcome.Status)
	assert.Equal(t, 0, exchange.Calls(local.CostBasisCall))
	assert.Equal(t, 0, exchange.Calls(local.OrderCall))
	assert.Equal(t, 0, len(exchange.Orders()))
}

func TestEngine_ConnectOnce(t *testing.T) {

	exchange := local.NewExchange().WithQuote("AAPL", 50)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5})

	for i := 0; i < 3; i++ {
		outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
		assert.Equal(t, Submitted, outcome.Status)
	}
	assert.Equal(t, 1, exchange.Calls(local.ConnectCall))
	assert.Equal(t, 3, exchange.Calls(local.OrderCall))
}

func TestEngine_Timeout(t *testing.T) {

	exchange := local.NewExchange().
		WithQuote("AAPL", 50).
		WithLatency(time.Second)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5})
	e.WithTimeout(10 * time.Millisecond)

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
	assert.Equal(t, BrokerCallError, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, context.DeadlineExceeded))
	assert.True(t, outcome.Duration < time.Second)
}

// stuck is a broker that ignores the context.
type stuck struct {
	*local.Exchange
	release chan struct{}
}

func (s stuck) Quote(ctx context.Context, ticker model.Ticker) (model.Quote, error) {
	<-s.release
	return s.Exchange.Quote(ctx, ticker)
}

func TestEngine_TimeoutWithStuckBroker(t *testing.T) {

	broker := stuck{
		Exchange: local.NewExchange().WithQuote("AAPL", 50),
		release:  make(chan struct{}),
	}
	defer close(broker.release)
	e, _ := newEngine(t, broker, config{"AAPL", 1000, 5})
	e.WithTimeout(10 * time.Millisecond)

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
	assert.Equal(t, BrokerCallError, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, context.DeadlineExceeded))
}

// faulty is a broker that panics on cost basis requests.
type faulty struct {
	*local.Exchange
}

func (f faulty) CostBasis(ctx context.Context, ticker model.Ticker) (model.CostBasis, error) {
	panic("nil session")
}

func TestEngine_BrokerPanic(t *testing.T) {

	broker := faulty{
		Exchange: local.NewExchange().
			WithQuote("AAPL", 110).
			WithPosition("AAPL", 10, 100),
	}
	e, u := newEngine(t, broker, config{"AAPL", 1000, 5})

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Sell))
	assert.Equal(t, BrokerCallError, outcome.Status)
	assert.Error(t, outcome.Err)
	assert.Equal(t, 0, len(broker.Orders()))
	_, err := u.Next(time.Second)
	assert.NoError(t, err)
}

// silent is a user that fails on every message.
type silent struct {
	*user.MockUser
}

func (s silent) Send(index api.Index, message *api.Message) int {
	panic("network down")
}

func TestEngine_NotificationFailure(t *testing.T) {

	exchange := local.NewExchange().WithQuote("AAPL", 50)
	store, err := tickers.NewStore(localjson.NewLocalStorage())
	require.NoError(t, err)
	_, err = store.Set("AAPL", 1000, 5)
	require.NoError(t, err)
	e := New(store, exchange, silent{user.NewMockUser()})

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
	assert.Equal(t, Submitted, outcome.Status)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, len(exchange.Orders()))
}

// stalled is a user whose deliveries never complete until released.
type stalled struct {
	*user.MockUser
	release chan struct{}
}

func (s stalled) Send(index api.Index, message *api.Message) int {
	<-s.release
	return 0
}

func TestEngine_StalledNotification(t *testing.T) {

	exchange := local.NewExchange().
		WithQuote("AAPL", 50).
		WithQuote("TSLA", 100)
	store, err := tickers.NewStore(localjson.NewLocalStorage())
	require.NoError(t, err)
	_, err = store.Set("AAPL", 1000, 5)
	require.NoError(t, err)
	_, err = store.Set("TSLA", 1000, 5)
	require.NoError(t, err)
	u := stalled{MockUser: user.NewMockUser(), release: make(chan struct{})}
	defer close(u.release)

	e := New(store, exchange, u)
	pool := NewPool(e, 1)

	for _, ticker := range []string{"AAPL", "TSLA"} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		outcomes, err := pool.Submit(ctx, model.NewSignal(ticker, model.Buy))
		require.NoError(t, err)
		select {
		case outcome := <-outcomes:
			assert.Equal(t, Submitted, outcome.Status)
		case <-ctx.Done():
			t.Fatalf("evaluation for %s waited for the notification", ticker)
		}
		cancel()
	}
	assert.Equal(t, 2, len(exchange.Orders()))
}

func TestEngine_Report(t *testing.T) {

	type test struct {
		action  model.Type
		message string
	}

	tests := map[string]test{
		"buy": {
			action:  model.Buy,
			message: "✅ BUY AAPL | Qty: 20 @ 50",
		},
		"sell": {
			action:  model.Sell,
			message: "ℹ️ No position in AAPL",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			exchange := local.NewExchange().WithQuote("AAPL", 50)
			e, u := newEngine(t, exchange, config{"AAPL", 1000, 5})
			e.ReportTo("desk")
			e.Evaluate(context.Background(), model.NewSignal("AAPL", tt.action))
			msg, err := u.Next(time.Second)
			require.NoError(t, err)
			assert.Equal(t, api.Index("desk"), msg.Index)
			assert.Equal(t, tt.message, msg.Message.Text)
		})
	}
}

func TestEngine_Announce(t *testing.T) {

	e, u := newEngine(t, local.NewExchange(), config{"TSLA", 1000, 5}, config{"AAPL", 500, 3})
	e.Announce()
	msg, err := u.Next(time.Second)
	require.NoError(t, err)
	assert.Equal(t, api.Operator, msg.Index)
	assert.Equal(t, "📈 Signal router started\n📊 TSLA, AAPL", msg.Message.Text)
}

func TestEngine_ConcurrentSell(t *testing.T) {

	exchange := local.NewExchange().
		WithQuote("AAPL", 110).
		WithPosition("AAPL", 10, 100).
		WithLatency(2 * time.Millisecond)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5})

	n := 10
	outcomes := make(chan Outcome, n)
	wg := new(sync.WaitGroup)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			outcomes <- e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Sell))
		}()
	}
	wg.Wait()
	close(outcomes)

	count := make(map[Status]int)
	for o := range outcomes {
		count[o.Status]++
	}
	assert.Equal(t, 1, count[Submitted])
	assert.Equal(t, n-1, count[NoPosition])
	orders := exchange.Orders()
	require.Equal(t, 1, len(orders))
	assert.Equal(t, 10.0, orders[0].Quantity)
}

func TestEngine_ConcurrentSellMixedCase(t *testing.T) {

	exchange := local.NewExchange().
		WithQuote("AAPL", 110).
		WithPosition("AAPL", 10, 100).
		WithLatency(2 * time.Millisecond)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5})

	forms := []model.Ticker{"aapl", "AAPL", "Aapl", " aapl "}
	n := 12
	outcomes := make(chan Outcome, n)
	wg := new(sync.WaitGroup)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			outcomes <- e.Evaluate(context.Background(), model.Signal{
				ID:     fmt.Sprintf("%d", i),
				Ticker: forms[i%len(forms)],
				Action: model.Sell,
			})
		}(i)
	}
	wg.Wait()
	close(outcomes)

	count := make(map[Status]int)
	for o := range outcomes {
		count[o.Status]++
	}
	assert.Equal(t, 1, count[Submitted])
	assert.Equal(t, n-1, count[NoPosition])
	require.Equal(t, 1, len(exchange.Orders()))
}

// hanging is a broker whose orders ignore the context and return only once released.
type hanging struct {
	*local.Exchange
	release chan struct{}
}

func (h hanging) PlaceOrder(ctx context.Context, order model.Order) (string, error) {
	<-h.release
	return h.Exchange.PlaceOrder(ctx, order)
}

func TestEngine_OrderInFlightHoldsTicker(t *testing.T) {

	broker := hanging{
		Exchange: local.NewExchange().WithQuote("AAPL", 50),
		release:  make(chan struct{}),
	}
	e, _ := newEngine(t, broker, config{"AAPL", 1000, 5})
	e.WithTimeout(10 * time.Millisecond)

	outcome := e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
	assert.Equal(t, BrokerSubmissionError, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, context.DeadlineExceeded))

	// the order is still with the broker, the next signal must not race it
	outcome = e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
	assert.Equal(t, BrokerCallError, outcome.Status)
	assert.True(t, errors.Is(outcome.Err, context.DeadlineExceeded))
	assert.Equal(t, 1, broker.Calls(local.QuoteCall))

	close(broker.release)
	assert.Eventually(t, func() bool {
		return len(broker.Orders()) == 1
	}, time.Second, time.Millisecond)
	outcome = e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))
	assert.Equal(t, Submitted, outcome.Status)
	assert.Equal(t, 2, len(broker.Orders()))
}

func TestEngine_ConcurrentTickers(t *testing.T) {

	latency := 50 * time.Millisecond
	exchange := local.NewExchange().
		WithQuote("AAPL", 50).
		WithQuote("TSLA", 100).
		WithLatency(latency)
	e, _ := newEngine(t, exchange, config{"AAPL", 1000, 5}, config{"TSLA", 1000, 5})
	// connect upfront so both evaluations only wait for quote and order
	e.Evaluate(context.Background(), model.NewSignal("AAPL", model.Buy))

	start := time.Now()
	wg := new(sync.WaitGroup)
	wg.Add(2)
	for _, ticker := range []string{"AAPL", "TSLA"} {
		go func(ticker string) {
			defer wg.Done()
			outcome := e.Evaluate(context.Background(), model.NewSignal(ticker, model.Buy))
			assert.Equal(t, Submitted, outcome.Status)
		}(ticker)
	}
	wg.Wait()
	// two calls each, in parallel
	assert.True(t, time.Since(start) < 4*latency, "%v", time.Since(start))
}
