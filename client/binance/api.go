package binance

import (
	"context"

	"github.com/adshao/go-binance/v2"
)

type orderRequest struct {
	Symbol      string
	Side        binance.SideType
	Type        binance.OrderType
	TimeInForce binance.TimeInForceType
	Quantity    string
	Price       string
}

type exchange interface {
	GetExchangeInfo(ctx context.Context) (res *binance.ExchangeInfo, err error)
	ListPrices(ctx context.Context, symbol string) (res []*binance.SymbolPrice, err error)
	GetAccount(ctx context.Context) (res *binance.Account, err error)
	ListTrades(ctx context.Context, symbol string, fromID int64, limit int) (res []*binance.TradeV3, err error)
	CreateOrder(ctx context.Context, order orderRequest) (res *binance.CreateOrderResponse, err error)
}

type binanceAPI struct {
	client *binance.Client
}

func newBinanceAPI(client *binance.Client) *binanceAPI {
	return &binanceAPI{client: client}
}

func (b *binanceAPI) GetExchangeInfo(ctx context.Context) (res *binance.ExchangeInfo, err error) {
	return b.client.NewExchangeInfoService().Do(ctx)
}

func (b *binanceAPI) ListPrices(ctx context.Context, symbol string) (res []*binance.SymbolPrice, err error) {
	return b.client.NewListPricesService().Symbol(symbol).Do(ctx)
}

func (b *binanceAPI) GetAccount(ctx context.Context) (res *binance.Account, err error) {
	return b.client.NewGetAccountService().Do(ctx)
}

func (b *binanceAPI) ListTrades(ctx context.Context, symbol string, fromID int64, limit int) (res []*binance.TradeV3, err error) {
	return b.client.NewListTradesService().
		Symbol(symbol).
		FromID(fromID).
		Limit(limit).
		Do(ctx)
}

func (b *binanceAPI) CreateOrder(ctx context.Context, order orderRequest) (res *binance.CreateOrderResponse, err error) {
	service := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(order.Side).
		Type(order.Type).
		Quantity(order.Quantity)
	if order.Type == binance.OrderTypeLimit {
		service = service.
			TimeInForce(order.TimeInForce).
			Price(order.Price)
	}
	return service.Do(ctx)
}
