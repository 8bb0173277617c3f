package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErr marks malformed input i.e. command arguments or ticker parameters.
var ValidationErr = errors.New("validation error")

var validate = validator.New()

// Ticker is the symbol of a tradable instrument.
type Ticker string

// NoTicker is an undefined ticker.
const NoTicker Ticker = ""

// NewTicker normalises the given symbol.
func NewTicker(s string) Ticker {
	return Ticker(strings.ToUpper(strings.TrimSpace(s)))
}

// TickerConfig holds the trading parameters for a ticker.
type TickerConfig struct {
	Ticker           Ticker  `json:"-" validate:"required"`
	OrderSizeUSD     float64 `json:"order_size_usd" validate:"gt=0"`
	MinProfitPercent float64 `json:"min_profit_percent"`
}

// NewTickerConfig creates and validates a new ticker config.
func NewTickerConfig(ticker string, orderSizeUSD, minProfitPercent float64) (TickerConfig, error) {
	cfg := TickerConfig{
		Ticker:           NewTicker(ticker),
		OrderSizeUSD:     orderSizeUSD,
		MinProfitPercent: minProfitPercent,
	}
	return cfg, cfg.Validate()
}

// Validate checks the config invariants.
func (c TickerConfig) Validate() error {
	if math.IsNaN(c.OrderSizeUSD) || math.IsInf(c.OrderSizeUSD, 0) {
		return fmt.Errorf("order size must be a finite number: %w", ValidationErr)
	}
	if math.IsNaN(c.MinProfitPercent) || math.IsInf(c.MinProfitPercent, 0) {
		return fmt.Errorf("min profit must be a finite number: %w", ValidationErr)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config for '%s': %s: %w", c.Ticker, err.Error(), ValidationErr)
	}
	return nil
}

func (c TickerConfig) String() string {
	return fmt.Sprintf("%s: $%v @ %v%% profit", c.Ticker, c.OrderSizeUSD, c.MinProfitPercent)
}
