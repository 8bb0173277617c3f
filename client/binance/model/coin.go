package model

import (
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
)

// Coin creates a new coin converter for binance.
func Coin(quoteAsset string) CoinConverter {
	return CoinConverter{quote: strings.ToUpper(quoteAsset)}
}

// CoinConverter converts from the internal ticker representation to binance pairs.
type CoinConverter struct {
	quote string
}

// Quote returns the quote asset of the pairs.
func (c CoinConverter) Quote() string {
	return c.quote
}

// Pair transforms the internal ticker to an exchange traded pair i.e. BTC -> BTCUSDT.
func (c CoinConverter) Pair(t model.Ticker) string {
	return string(t) + c.quote
}

// Ticker transforms the binance asset or pair to the internal ticker.
func (c CoinConverter) Ticker(p string) model.Ticker {
	p = strings.ToUpper(p)
	if p != c.quote && strings.HasSuffix(p, c.quote) {
		return model.Ticker(strings.TrimSuffix(p, c.quote))
	}
	return model.Ticker(p)
}

// Type creates a new type converter for binance.
func Type() TypeConverter {
	return TypeConverter{types: map[model.Type]binance.SideType{
		model.Buy:  binance.SideTypeBuy,
		model.Sell: binance.SideTypeSell,
	}}
}

// TypeConverter converts between binance and internal model types.
type TypeConverter struct {
	types map[model.Type]binance.SideType
}

// To transforms from a binance type representation to the internal model.
func (t TypeConverter) To(s binance.SideType) model.Type {
	for t, ts := range t.types {
		if ts == s {
			return t
		}
	}
	log.Error().Str("type", string(s)).Msg("unexpected type")
	return model.NoType
}

// From transforms from the internal model representation to the binance model.
func (t TypeConverter) From(s model.Type) binance.SideType {
	if ts, ok := t.types[s]; ok {
		return ts
	}
	log.Error().Str("type", s.String()).Msg("unexpected type")
	return ""
}
