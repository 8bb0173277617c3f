package binance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/drakos74/signal-router/client/binance/model"
	"github.com/drakos74/signal-router/internal/api"
	coinmodel "github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
)

// Name is the exchange name.
const Name = "binance"

// Exchange is a binance spot client implementing api.Broker.
// Tickers are traded against the configured quote asset i.e. BTC -> BTCUSDT.
type Exchange struct {
	api       exchange
	account   string
	converter model.Converter
	info      map[string]binance.Symbol
	lock      *sync.RWMutex
}

// NewExchange creates a new binance client.
// Without credentials only the public endpoints i.e. quotes are usable.
func NewExchange(key, secret, quoteAsset string) *Exchange {
	return newExchange(newBinanceAPI(binance.NewClient(key, secret)), quoteAsset)
}

func newExchange(api exchange, quoteAsset string) *Exchange {
	return &Exchange{
		api:       api,
		account:   Name,
		converter: model.NewConverter(quoteAsset),
		lock:      new(sync.RWMutex),
	}
}

// Connect loads the exchange info for the symbols.
func (c *Exchange) Connect(ctx context.Context) error {
	info, err := c.api.GetExchangeInfo(ctx)
	if err != nil {
		return fmt.Errorf("could not get exchange info: %w", err)
	}
	symbols := make(map[string]binance.Symbol)
	for _, s := range info.Symbols {
		symbols[s.Symbol] = s
	}
	log.Info().
		Int("pairs", len(symbols)).
		Str("exchange", Name).
		Msg("exchange info")
	c.lock.Lock()
	defer c.lock.Unlock()
	c.info = symbols
	return nil
}

func (c *Exchange) IsConnected() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.info != nil
}

func (c *Exchange) symbol(ticker coinmodel.Ticker) (binance.Symbol, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	pair := c.converter.Coin.Pair(ticker)
	s, ok := c.info[pair]
	if !ok {
		return s, fmt.Errorf("could not find exchange info for %s [%d]: %w", pair, len(c.info), api.UnavailableErr)
	}
	return s, nil
}

func (c *Exchange) Quote(ctx context.Context, ticker coinmodel.Ticker) (coinmodel.Quote, error) {
	pair := c.converter.Coin.Pair(ticker)
	prices, err := c.api.ListPrices(ctx, pair)
	if err != nil {
		return coinmodel.Quote{}, fmt.Errorf("could not get price for %s: %w", pair, err)
	}
	for _, price := range prices {
		if price == nil || price.Symbol != pair {
			continue
		}
		p, err := strconv.ParseFloat(price.Price, 64)
		if err != nil {
			return coinmodel.Quote{}, fmt.Errorf("could not parse price '%s' for %s: %w", price.Price, pair, api.UnavailableErr)
		}
		return coinmodel.Quote{
			Ticker: ticker,
			Price:  p,
			Time:   time.Now(),
		}, nil
	}
	return coinmodel.Quote{}, fmt.Errorf("no price for %s: %w", pair, api.UnavailableErr)
}

type holding struct {
	free   float64
	locked float64
}

func (c *Exchange) holdings(ctx context.Context) (map[coinmodel.Ticker]holding, error) {
	account, err := c.api.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get balance: %w", err)
	}
	holdings := make(map[coinmodel.Ticker]holding)
	for _, b := range account.Balances {
		if b.Asset == c.converter.Coin.Quote() {
			continue
		}
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse volume for %s: %w", b.Asset, err)
		}
		locked, err := strconv.ParseFloat(b.Locked, 64)
		if err != nil {
			log.Error().Str("asset", b.Asset).Err(err).Msg("could not parse locked assets")
		}
		if free+locked == 0 {
			continue
		}
		holdings[c.converter.Coin.Ticker(b.Asset)] = holding{free: free, locked: locked}
	}
	return holdings, nil
}

// Positions returns the free balances of all assets except the quote asset.
// Balances locked in open orders cannot be sold and are left out.
func (c *Exchange) Positions(ctx context.Context) ([]coinmodel.Position, error) {
	holdings, err := c.holdings(ctx)
	if err != nil {
		return nil, err
	}
	positions := make([]coinmodel.Position, 0, len(holdings))
	for ticker, h := range holdings {
		if h.free == 0 {
			continue
		}
		positions = append(positions, coinmodel.Position{
			Account:  c.account,
			Ticker:   ticker,
			Quantity: h.free,
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Ticker < positions[j].Ticker
	})
	return positions, nil
}

const (
	// tradesPage is the max number of trades per request.
	tradesPage = 1000
	// maxTradePages bounds the history replayed for the cost basis.
	maxTradePages = 100
	// dust is the relative difference tolerated between the held balance and the replayed trades e.g. fees.
	dust = 1e-6
)

// CostBasis computes the average cost from the full trade history of the pair.
// The cost is unavailable if the trades do not account for the whole balance i.e. deposited coins.
func (c *Exchange) CostBasis(ctx context.Context, ticker coinmodel.Ticker) (coinmodel.CostBasis, error) {
	pair := c.converter.Coin.Pair(ticker)
	trades, err := c.trades(ctx, pair)
	if err != nil {
		return coinmodel.CostBasis{}, err
	}
	quantity, avg, err := replay(trades)
	if err != nil {
		return coinmodel.CostBasis{}, fmt.Errorf("no cost info for %s: %w", pair, err)
	}
	holdings, err := c.holdings(ctx)
	if err != nil {
		return coinmodel.CostBasis{}, err
	}
	h := holdings[ticker]
	if held := h.free + h.locked; held > quantity*(1+dust) {
		return coinmodel.CostBasis{}, fmt.Errorf("trades cover %v of %v for %s: %w", quantity, held, pair, api.UnavailableErr)
	}
	return coinmodel.CostBasis{
		Ticker:      ticker,
		AverageCost: avg,
	}, nil
}

// trades pages through the account trades of the pair from the first one.
func (c *Exchange) trades(ctx context.Context, pair string) ([]*binance.TradeV3, error) {
	trades := make([]*binance.TradeV3, 0)
	var from int64
	for page := 0; page < maxTradePages; page++ {
		batch, err := c.api.ListTrades(ctx, pair, from, tradesPage)
		if err != nil {
			return nil, fmt.Errorf("could not get trades for %s: %w", pair, err)
		}
		trades = append(trades, batch...)
		if len(batch) < tradesPage {
			return trades, nil
		}
		for _, t := range batch {
			if t != nil && t.ID >= from {
				from = t.ID + 1
			}
		}
	}
	return nil, fmt.Errorf("more than %d trades for %s: %w", maxTradePages*tradesPage, pair, api.UnavailableErr)
}

// AverageCost replays the trades in time order and returns the average cost of the remaining quantity.
// Sells reduce the quantity at the current average cost.
func AverageCost(trades []*binance.TradeV3) (float64, error) {
	_, avg, err := replay(trades)
	return avg, err
}

func replay(trades []*binance.TradeV3) (quantity, avg float64, err error) {
	tt := make([]*binance.TradeV3, 0, len(trades))
	for _, t := range trades {
		if t != nil {
			tt = append(tt, t)
		}
	}
	sort.SliceStable(tt, func(i, j int) bool {
		return tt[i].Time < tt[j].Time
	})
	for _, t := range tt {
		p, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("could not parse price for trade %d: %w", t.ID, err)
		}
		q, err := strconv.ParseFloat(t.Quantity, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("could not parse quantity for trade %d: %w", t.ID, err)
		}
		if t.IsBuyer {
			avg = (quantity*avg + q*p) / (quantity + q)
			quantity += q
			continue
		}
		quantity -= q
		if quantity <= 0 {
			quantity = 0
			avg = 0
		}
	}
	if quantity <= 0 || avg <= 0 {
		return 0, 0, api.UnavailableErr
	}
	return quantity, avg, nil
}

// PlaceOrder adjusts the order to the symbol filters and submits it.
// Orders outside regular hours have no meaning for the spot market, which trades continuously.
func (c *Exchange) PlaceOrder(ctx context.Context, order coinmodel.Order) (string, error) {
	s, err := c.symbol(order.Ticker)
	if err != nil {
		return "", err
	}
	request, err := c.request(s, order)
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("symbol", request.Symbol).
		Str("quantity", request.Quantity).
		Str("price", request.Price).
		Str("order", order.String()).
		Msg("submit order")

	response, err := c.api.CreateOrder(ctx, request)
	if err != nil {
		return "", fmt.Errorf("could not complete order: %w", err)
	}
	return strconv.FormatInt(response.OrderID, 10), nil
}

func (c *Exchange) request(s binance.Symbol, order coinmodel.Order) (orderRequest, error) {
	side := c.converter.Type.From(order.Type)
	if side == "" {
		return orderRequest{}, fmt.Errorf("unknown side for %s: %w", order.Ticker, coinmodel.ValidationErr)
	}
	orderType, err := c.converter.OrderType.From(order.OType)
	if err != nil {
		return orderRequest{}, err
	}
	request := orderRequest{
		Symbol: s.Symbol,
		Side:   side,
		Type:   orderType,
	}

	lotSize, err := model.ParseLOTSize(s.Filters)
	if err != nil {
		log.Trace().Str("filters", fmt.Sprintf("%+v", s.Filters)).Msg("no lot size filter found")
		request.Quantity = strconv.FormatFloat(order.Quantity, 'f', s.BaseAssetPrecision, 64)
	} else {
		quantity, err := lotSize.Adjust(order.Quantity)
		if err != nil {
			return orderRequest{}, fmt.Errorf("invalid quantity for %s: %w", s.Symbol, err)
		}
		request.Quantity = lotSize.Format(quantity)
	}

	if orderType != binance.OrderTypeLimit {
		return request, nil
	}
	request.TimeInForce = binance.TimeInForceTypeGTC
	tick, err := model.ParsePriceFilter(s.Filters)
	if err != nil {
		request.Price = strconv.FormatFloat(order.Price, 'f', s.QuotePrecision, 64)
		return request, nil
	}
	price, err := tick.Adjust(order.Price)
	if err != nil {
		return orderRequest{}, fmt.Errorf("invalid price for %s: %w", s.Symbol, err)
	}
	request.Price = tick.Format(price)
	return request, nil
}
