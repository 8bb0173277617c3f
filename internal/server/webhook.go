package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/drakos74/signal-router/internal/engine"
	"github.com/drakos74/signal-router/internal/metrics"
	"github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
)

const invalid = "invalid"

// Submitter hands signals to the evaluation workers.
type Submitter interface {
	Submit(ctx context.Context, signal model.Signal) (<-chan engine.Outcome, error)
}

// SignalRequest is the inbound webhook payload.
type SignalRequest struct {
	Ticker string `json:"ticker"`
	Action string `json:"action"`
}

// SignalResponse is the webhook reply.
type SignalResponse struct {
	Status  string        `json:"status,omitempty"`
	Outcome engine.Status `json:"outcome,omitempty"`
	Signal  string        `json:"signal,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Hook creates the webhook route that evaluates trade signals.
func Hook(submitter Submitter, debug bool) Route {
	return Route{
		Action: Webhook,
		Method: POST,
		Exec: func(r *http.Request) ([]byte, int, error) {
			var request SignalRequest
			if err := JsonRead(r, debug, &request); err != nil {
				return reply(invalid, http.StatusBadRequest, SignalResponse{
					Error: "Invalid payload",
				})
			}
			ticker := strings.ToUpper(strings.TrimSpace(request.Ticker))
			action, err := model.ParseType(request.Action)
			if err != nil {
				return reply(invalid, http.StatusBadRequest, SignalResponse{
					Error: "Invalid action",
				})
			}

			signal := model.NewSignal(ticker, action)
			future, err := submitter.Submit(r.Context(), signal)
			if err != nil {
				log.Warn().Err(err).Str("signal", signal.ID).Str("ticker", ticker).Msg("could not submit signal")
				return reply(action.String(), http.StatusServiceUnavailable, SignalResponse{
					Signal: signal.ID,
					Error:  "Service unavailable",
				})
			}

			var outcome engine.Outcome
			select {
			case outcome = <-future:
			case <-r.Context().Done():
				return reply(action.String(), http.StatusServiceUnavailable, SignalResponse{
					Signal: signal.ID,
					Error:  "Request cancelled",
				})
			}

			if outcome.Status == engine.ConfigNotFound {
				return reply(action.String(), http.StatusBadRequest, SignalResponse{
					Outcome: outcome.Status,
					Signal:  signal.ID,
					Error:   "Ticker not configured",
				})
			}
			status := fmt.Sprintf("Buy triggered for %s", signal.Ticker)
			if action == model.Sell {
				status = fmt.Sprintf("Sell evaluated for %s", signal.Ticker)
			}
			return reply(action.String(), http.StatusOK, SignalResponse{
				Status:  status,
				Outcome: outcome.Status,
				Signal:  signal.ID,
			})
		},
	}
}

func reply(action string, code int, response SignalResponse) ([]byte, int, error) {
	metrics.Observer.Signal(action, strconv.Itoa(code))
	b, err := json.Marshal(response)
	if err != nil {
		return nil, 0, fmt.Errorf("could not encode response: %w", err)
	}
	return b, code, nil
}

// Prometheus exposes the service metrics.
func Prometheus() Route {
	return Route{
		Action: Metrics,
		Method: GET,
		Raw:    metrics.Handler(),
	}
}
