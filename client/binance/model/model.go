package model

// Converter encapsulates all conversion logic for the binance exchange.
type Converter struct {
	Coin      CoinConverter
	Type      TypeConverter
	OrderType OrderTypeConverter
}

// NewConverter creates a new converter for pairs against the given quote asset.
func NewConverter(quoteAsset string) Converter {
	return Converter{
		Coin:      Coin(quoteAsset),
		Type:      Type(),
		OrderType: OrderType(),
	}
}
