package engine

import (
	"fmt"
	"strings"

	"github.com/drakos74/signal-router/internal/emoji"
	"github.com/drakos74/signal-router/internal/model"
)

func formatOutcome(o Outcome) string {
	ticker := o.Signal.Ticker
	switch o.Status {
	case Submitted:
		return fmt.Sprintf("%s %s %s | Qty: %v @ %v",
			emoji.Check, strings.ToUpper(o.Signal.Action.String()), ticker, o.Quantity, o.Price)
	case NoPosition:
		return fmt.Sprintf("%s No position in %s", emoji.Info, ticker)
	case BelowProfitTarget:
		return fmt.Sprintf("%s Profit %.2f%% < Target %v%% for %s", emoji.Down, o.ReturnPercent, o.Target, ticker)
	case ConfigNotFound:
		return fmt.Sprintf("%s Ticker not configured: %s", emoji.Warning, ticker)
	case QuoteUnavailable:
		return fmt.Sprintf("%s Market price not available for %s", emoji.Warning, ticker)
	case CostBasisUnavailable:
		return fmt.Sprintf("%s No cost info for %s", emoji.Warning, ticker)
	case QuantityTooSmall:
		return fmt.Sprintf("%s Order size too small for %s @ %v", emoji.Warning, ticker, o.Price)
	case InvalidSignal:
		return fmt.Sprintf("%s Invalid action for %s", emoji.Cross, ticker)
	}
	action := o.Signal.Action.String()
	if action != "" {
		action = strings.ToUpper(action[:1]) + action[1:]
	}
	return fmt.Sprintf("%s %s error for %s: %v", emoji.Cross, action, ticker, o.Err)
}

func formatStart(configs []model.TickerConfig) string {
	msg := fmt.Sprintf("%s Signal router started", emoji.Up)
	if len(configs) == 0 {
		return fmt.Sprintf("%s\n%s No tickers configured yet.", msg, emoji.Warning)
	}
	tt := make([]string, len(configs))
	for i, cfg := range configs {
		tt[i] = string(cfg.Ticker)
	}
	return fmt.Sprintf("%s\n%s %s", msg, emoji.Chart, strings.Join(tt, ", "))
}
