package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	lotSizeFilter = "LOT_SIZE"
	priceFilter   = "PRICE_FILTER"
)

// OrderType creates an order type converter
func OrderType() OrderTypeConverter {
	return OrderTypeConverter{
		orderTypes: map[model.OrderType]binance.OrderType{
			model.Market: binance.OrderTypeMarket,
			model.Limit:  binance.OrderTypeLimit,
		},
	}
}

// OrderTypeConverter converts from a binance order type model to the internal one.
type OrderTypeConverter struct {
	orderTypes map[model.OrderType]binance.OrderType
}

// From translates the type of order to binance specific representation.
func (ot OrderTypeConverter) From(t model.OrderType) (binance.OrderType, error) {
	if orderType, ok := ot.orderTypes[t]; ok {
		return orderType, nil
	}
	return "", fmt.Errorf("unknown order type %v", t)
}

// To translates the type of the binance order to the internal representation.
func (ot OrderTypeConverter) To(orderType binance.OrderType) model.OrderType {
	for t, ordT := range ot.orderTypes {
		if orderType == ordT {
			return t
		}
	}
	return model.NoOrderType
}

type LotSizeFilter struct {
	Type        string `json:"filterType"`
	MaxQuantity string `json:"maxQty"`
	MinQuantity string `json:"minQty"`
	StepSize    string `json:"stepSize"`
}

type PriceFilter struct {
	Type     string `json:"filterType"`
	MinPrice string `json:"minPrice"`
	MaxPrice string `json:"maxPrice"`
	TickSize string `json:"tickSize"`
}

// Step is a quantized range of values e.g. lot size or price tick.
type Step struct {
	Min      float64
	Max      float64
	Size     float64
	Decimals int
}

func newStep(min, max, size string) (Step, error) {
	step := Step{}
	v, err := strconv.ParseFloat(min, 64)
	if err != nil {
		return step, fmt.Errorf("could not parse min: %w", err)
	}
	step.Min = v
	v, err = strconv.ParseFloat(max, 64)
	if err != nil {
		return step, fmt.Errorf("could not parse max: %w", err)
	}
	step.Max = v
	v, err = strconv.ParseFloat(size, 64)
	if err != nil {
		return step, fmt.Errorf("could not parse step size: %w", err)
	}
	step.Size = v
	step.Decimals = decimals(size)
	return step, nil
}

// decimals returns the significant decimals of a step i.e. '0.00100000' -> 3.
func decimals(s string) int {
	i := strings.Index(s, ".")
	if i < 0 {
		return 0
	}
	return len(strings.TrimRight(s[i+1:], "0"))
}

// Adjust floors the value to the step size and checks the range.
func (l Step) Adjust(value float64) (float64, error) {
	if l.Size > 0 {
		// go to the floor to avoid insufficient funds for selling off
		value = math.Floor(value/l.Size+1e-9) * l.Size
	}
	if value < l.Min {
		return 0, fmt.Errorf("value %v below minimum %v: %w", value, l.Min, model.ValidationErr)
	}
	if l.Max > 0 && value > l.Max {
		return 0, fmt.Errorf("value %v above maximum %v: %w", value, l.Max, model.ValidationErr)
	}
	return value, nil
}

// Format formats the value with the decimals of the step.
func (l Step) Format(value float64) string {
	return strconv.FormatFloat(value, 'f', l.Decimals, 64)
}

// ParseLOTSize finds the lot size in the symbol filters.
func ParseLOTSize(filters []map[string]interface{}) (Step, error) {
	var filter LotSizeFilter
	if err := findFilter(filters, lotSizeFilter, &filter); err != nil {
		return Step{}, err
	}
	return newStep(filter.MinQuantity, filter.MaxQuantity, filter.StepSize)
}

// ParsePriceFilter finds the price tick in the symbol filters.
func ParsePriceFilter(filters []map[string]interface{}) (Step, error) {
	var filter PriceFilter
	if err := findFilter(filters, priceFilter, &filter); err != nil {
		return Step{}, err
	}
	return newStep(filter.MinPrice, filter.MaxPrice, filter.TickSize)
}

func findFilter(filters []map[string]interface{}, filterType string, v interface{}) error {
	for _, f := range filters {
		if f["filterType"] != filterType {
			continue
		}
		b, err := json.Marshal(f)
		if err != nil {
			log.Trace().Err(err).Msg("could not encode filter")
			continue
		}
		return json.Unmarshal(b, v)
	}
	return fmt.Errorf("could not find %s in: %+v", filterType, filters)
}
