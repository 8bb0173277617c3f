package engine

import (
	"fmt"
	"time"

	"github.com/drakos74/signal-router/internal/model"
)

// Status is the terminal classification of a signal evaluation.
type Status byte

const (
	// Submitted means an order was handed to the broker.
	Submitted Status = iota + 1
	// NoPosition means there was nothing to sell.
	NoPosition
	// BelowProfitTarget means the current return did not reach the configured target.
	BelowProfitTarget
	// InvalidSignal means the signal carried no valid action.
	InvalidSignal
	// ConfigNotFound means the ticker has no trading parameters.
	ConfigNotFound
	// QuoteUnavailable means the broker had no usable price.
	QuoteUnavailable
	// CostBasisUnavailable means the broker had no usable average cost.
	CostBasisUnavailable
	// QuantityTooSmall means the order size does not buy a single unit.
	QuantityTooSmall
	// BrokerSubmissionError means the broker rejected the order.
	BrokerSubmissionError
	// BrokerCallError is any other broker failure.
	BrokerCallError
)

var statusNames = map[Status]string{
	Submitted:             "submitted",
	NoPosition:            "no-position",
	BelowProfitTarget:     "below-profit-target",
	InvalidSignal:         "invalid-signal",
	ConfigNotFound:        "config-not-found",
	QuoteUnavailable:      "quote-unavailable",
	CostBasisUnavailable:  "cost-basis-unavailable",
	QuantityTooSmall:      "quantity-too-small",
	BrokerSubmissionError: "broker-submission-error",
	BrokerCallError:       "broker-call-error",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the status from its name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status: %s", string(text))
}

// IsError returns true for the statuses that signal a failure rather than a decision.
func (s Status) IsError() bool {
	switch s {
	case Submitted, NoPosition, BelowProfitTarget:
		return false
	}
	return true
}

// Outcome is the result of evaluating one signal.
type Outcome struct {
	Signal        model.Signal
	Status        Status
	Order         *model.Order
	Ref           string
	Price         float64
	Quantity      float64
	ReturnPercent float64
	Target        float64
	Err           error
	Duration      time.Duration

	// closed once an order that timed out has returned from the broker
	inflight <-chan struct{}
}

func newOutcome(signal model.Signal) Outcome {
	return Outcome{Signal: signal}
}

func (o Outcome) with(status Status, err error) Outcome {
	o.Status = status
	o.Err = err
	return o
}
