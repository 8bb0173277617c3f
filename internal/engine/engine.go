package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/drakos74/signal-router/internal/concurrent"
	"github.com/drakos74/signal-router/internal/metrics"
	"github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is the default deadline for each broker call.
const DefaultTimeout = 10 * time.Second

// lockWait is the number of broker call timeouts a signal waits for its ticker to be free.
// It covers the longest evaluation of the previous signal.
const lockWait = 6

// Tickers provides the trading parameters per ticker.
type Tickers interface {
	Get(ticker model.Ticker) (model.TickerConfig, bool)
	List() []model.TickerConfig
}

// Engine evaluates trade signals against the ticker configuration and the broker state.
// Evaluations for the same ticker are serialised, different tickers evaluate concurrently.
type Engine struct {
	tickers    Tickers
	broker     api.Broker
	notifier   *notifier
	index      api.Index
	timeout    time.Duration
	locks      *concurrent.KeyedLock
	connection *sync.Mutex
}

// New creates a new engine.
func New(tickers Tickers, broker api.Broker, user api.User) *Engine {
	return &Engine{
		tickers:    tickers,
		broker:     broker,
		notifier:   newNotifier(user, NotificationQueue),
		index:      api.Operator,
		timeout:    DefaultTimeout,
		locks:      concurrent.NewKeyedLock(),
		connection: new(sync.Mutex),
	}
}

// WithTimeout sets the deadline for each broker call.
func (e *Engine) WithTimeout(timeout time.Duration) *Engine {
	if timeout > 0 {
		e.timeout = timeout
	}
	return e
}

// ReportTo defines the recipient of the outcome reports.
func (e *Engine) ReportTo(index api.Index) *Engine {
	e.index = index
	return e
}

// Announce notifies the operator that the engine is up, listing the configured tickers.
func (e *Engine) Announce() {
	configs := e.tickers.List()
	log.Info().Int("tickers", len(configs)).Msg("engine started")
	e.notifier.notify(e.index, api.NewMessage(formatStart(configs)))
}

// Evaluate processes the signal and always returns an outcome.
func (e *Engine) Evaluate(ctx context.Context, signal model.Signal) (outcome Outcome) {
	start := time.Now()
	outcome = newOutcome(signal)
	defer func() {
		if r := recover(); r != nil {
			outcome = outcome.with(BrokerCallError, fmt.Errorf("unexpected failure: %v", r))
		}
		outcome.Duration = time.Since(start)
		e.report(outcome, start)
	}()

	cfg, ok := e.tickers.Get(signal.Ticker)
	if !ok {
		return outcome.with(ConfigNotFound, fmt.Errorf("no config for '%s'", signal.Ticker))
	}
	switch signal.Action {
	case model.Buy, model.Sell:
	default:
		return outcome.with(InvalidSignal, fmt.Errorf("unknown action: %v: %w", signal.Action, model.ValidationErr))
	}

	wait, cancel := context.WithTimeout(ctx, lockWait*e.timeout)
	unlock, err := e.locks.Lock(wait, string(cfg.Ticker))
	cancel()
	if err != nil {
		return outcome.with(BrokerCallError, fmt.Errorf("ticker '%s' busy: %w", cfg.Ticker, err))
	}
	defer func() {
		// an order still in flight keeps the ticker locked until the broker returns
		if outcome.inflight != nil {
			go func(done <-chan struct{}) {
				<-done
				unlock()
			}(outcome.inflight)
			return
		}
		unlock()
	}()

	if err := e.connect(ctx); err != nil {
		return outcome.with(BrokerCallError, err)
	}

	if signal.Action == model.Buy {
		return e.buy(ctx, cfg, outcome)
	}
	return e.sell(ctx, cfg, outcome)
}

func (e *Engine) buy(ctx context.Context, cfg model.TickerConfig, outcome Outcome) Outcome {
	ticker := cfg.Ticker
	quote, err := call(ctx, e.timeout, func(ctx context.Context) (model.Quote, error) {
		return e.broker.Quote(ctx, ticker)
	})
	if err != nil {
		return outcome.with(classify(err, QuoteUnavailable), err)
	}
	if !quote.Valid() {
		return outcome.with(QuoteUnavailable, fmt.Errorf("invalid price for '%s': %v", ticker, quote.Price))
	}
	outcome.Price = quote.Price

	quantity := math.Round(cfg.OrderSizeUSD / quote.Price)
	outcome.Quantity = quantity
	if quantity == 0 {
		return outcome.with(QuantityTooSmall, fmt.Errorf("order size %v below price %v", cfg.OrderSizeUSD, quote.Price))
	}

	return e.submit(ctx, outcome, model.NewOrder(ticker).
		Buy().
		Limit(quote.Price).
		WithQuantity(quantity).
		GoodTillCanceled().
		OutsideRegularHours())
}

func (e *Engine) sell(ctx context.Context, cfg model.TickerConfig, outcome Outcome) Outcome {
	ticker := cfg.Ticker
	outcome.Target = cfg.MinProfitPercent

	quote, quoteErr := call(ctx, e.timeout, func(ctx context.Context) (model.Quote, error) {
		return e.broker.Quote(ctx, ticker)
	})
	if quoteErr != nil && !errors.Is(quoteErr, api.UnavailableErr) {
		return outcome.with(BrokerCallError, quoteErr)
	}

	positions, err := call(ctx, e.timeout, func(ctx context.Context) ([]model.Position, error) {
		return e.broker.Positions(ctx)
	})
	if err != nil {
		return outcome.with(BrokerCallError, err)
	}
	quantity := model.Aggregate(ticker, positions)
	outcome.Quantity = quantity
	if quantity <= 0 {
		return outcome.with(NoPosition, nil)
	}

	if quoteErr != nil {
		return outcome.with(QuoteUnavailable, quoteErr)
	}
	if !quote.Valid() {
		return outcome.with(QuoteUnavailable, fmt.Errorf("invalid price for '%s': %v", ticker, quote.Price))
	}
	outcome.Price = quote.Price

	cost, err := call(ctx, e.timeout, func(ctx context.Context) (model.CostBasis, error) {
		return e.broker.CostBasis(ctx, ticker)
	})
	if err != nil {
		return outcome.with(classify(err, CostBasisUnavailable), err)
	}
	if cost.AverageCost <= 0 {
		return outcome.with(CostBasisUnavailable, fmt.Errorf("invalid average cost for '%s': %v", ticker, cost.AverageCost))
	}

	outcome.ReturnPercent = cost.ReturnPercent(quote.Price)
	if outcome.ReturnPercent < cfg.MinProfitPercent {
		return outcome.with(BelowProfitTarget, nil)
	}

	return e.submit(ctx, outcome, model.NewOrder(ticker).
		Sell().
		Limit(quote.Price).
		WithQuantity(quantity).
		GoodTillCanceled().
		OutsideRegularHours())
}

func (e *Engine) submit(ctx context.Context, outcome Outcome, builder *model.Order) Outcome {
	order, err := builder.Create()
	if err != nil {
		return outcome.with(BrokerSubmissionError, fmt.Errorf("could not create order: %w", err))
	}
	outcome.Order = &order
	ref, done, err := run(ctx, e.timeout, func(ctx context.Context) (string, error) {
		return e.broker.PlaceOrder(ctx, order)
	})
	if err != nil {
		select {
		case <-done:
		default:
			outcome.inflight = done
		}
		return outcome.with(BrokerSubmissionError, err)
	}
	outcome.Ref = ref
	return outcome.with(Submitted, nil)
}

// connect makes sure the shared broker session is open.
func (e *Engine) connect(ctx context.Context) error {
	e.connection.Lock()
	defer e.connection.Unlock()
	if e.broker.IsConnected() {
		return nil
	}
	_, err := call(ctx, e.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.broker.Connect(ctx)
	})
	if err != nil {
		return fmt.Errorf("could not connect to broker: %w", err)
	}
	log.Info().Msg("broker connected")
	return nil
}

func (e *Engine) report(outcome Outcome, start time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("signal", outcome.Signal.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("could not report outcome")
		}
	}()
	metrics.Observer.Outcome(string(outcome.Signal.Ticker), outcome.Status.String())
	metrics.Observer.Evaluation(outcome.Signal.Action.String(), start)

	l := log.Info()
	if outcome.Status.IsError() {
		l = log.Warn().Err(outcome.Err)
	}
	l.Str("signal", outcome.Signal.ID).
		Str("ticker", string(outcome.Signal.Ticker)).
		Str("action", outcome.Signal.Action.String()).
		Str("status", outcome.Status.String()).
		Float64("quantity", outcome.Quantity).
		Float64("price", outcome.Price).
		Str("ref", outcome.Ref).
		Dur("duration", outcome.Duration).
		Msg("signal evaluated")

	e.notifier.notify(e.index, api.NewMessage(formatOutcome(outcome)))
}

// classify maps unavailable data to the given status and anything else to a broker call error.
func classify(err error, unavailable Status) Status {
	if errors.Is(err, api.UnavailableErr) {
		return unavailable
	}
	return BrokerCallError
}

type result[T any] struct {
	value T
	err   error
}

// call runs the broker call under the timeout.
// It returns once the deadline passes even if the broker does not honour the context.
func call[T any](ctx context.Context, timeout time.Duration, f func(ctx context.Context) (T, error)) (T, error) {
	v, _, err := run(ctx, timeout, f)
	return v, err
}

// run is call that also returns a channel closed once the broker call has actually returned.
func run[T any](ctx context.Context, timeout time.Duration, f func(ctx context.Context) (T, error)) (T, <-chan struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	results := make(chan result[T], 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				var zero T
				results <- result[T]{value: zero, err: fmt.Errorf("broker call failed: %v", r)}
			}
		}()
		v, err := f(ctx)
		results <- result[T]{value: v, err: err}
	}()
	select {
	case r := <-results:
		<-done
		return r.value, done, r.err
	case <-ctx.Done():
		var zero T
		return zero, done, fmt.Errorf("broker call interrupted: %w", ctx.Err())
	}
}
