package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/drakos74/signal-router/client/local"
	"github.com/drakos74/signal-router/internal/engine"
	localjson "github.com/drakos74/signal-router/internal/storage/file/json"
	"github.com/drakos74/signal-router/internal/tickers"
	user "github.com/drakos74/signal-router/user/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, exchange *local.Exchange) (*httptest.Server, *engine.Pool) {
	store, err := tickers.NewStore(localjson.NewLocalStorage())
	require.NoError(t, err)
	_, err = store.Set("AAPL", 1000, 5)
	require.NoError(t, err)
	u, err := user.NewUser("")
	require.NoError(t, err)
	pool := engine.NewPool(engine.New(store, exchange, u), 2)
	srv := httptest.NewServer(NewServer("test", 0).
		Add(Live(), Hook(pool, true), Prometheus()).
		Handler())
	t.Cleanup(srv.Close)
	return srv, pool
}

func post(t *testing.T, url string, body string) (int, SignalResponse) {
	resp, err := http.Post(url+"/webhook", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var response SignalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	return resp.StatusCode, response
}

func TestServer_Webhook(t *testing.T) {

	type test struct {
		body    string
		code    int
		status  string
		outcome string
		err     string
		orders  int
	}

	tests := map[string]test{
		"buy": {
			body:    `{"ticker":"aapl","action":"BUY"}`,
			code:    http.StatusOK,
			status:  "Buy triggered for AAPL",
			outcome: "submitted",
			orders:  1,
		},
		"sell-no-position": {
			body:    `{"ticker":"AAPL","action":"sell"}`,
			code:    http.StatusOK,
			status:  "Sell evaluated for AAPL",
			outcome: "no-position",
		},
		"not-configured": {
			body:    `{"ticker":"TSLA","action":"buy"}`,
			code:    http.StatusBadRequest,
			outcome: "config-not-found",
			err:     "Ticker not configured",
		},
		"missing-ticker": {
			body:    `{"action":"buy"}`,
			code:    http.StatusBadRequest,
			outcome: "config-not-found",
			err:     "Ticker not configured",
		},
		"invalid-action": {
			body: `{"ticker":"AAPL","action":"hold"}`,
			code: http.StatusBadRequest,
			err:  "Invalid action",
		},
		"invalid-payload": {
			body: `{"ticker":`,
			code: http.StatusBadRequest,
			err:  "Invalid payload",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			exchange := local.NewExchange().WithQuote("AAPL", 50)
			srv, _ := newTestServer(t, exchange)
			code, response := post(t, srv.URL, tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, response.Status)
			assert.Equal(t, tt.err, response.Error)
			assert.Equal(t, tt.orders, len(exchange.Orders()))
			if tt.outcome != "" {
				b, err := response.Outcome.MarshalText()
				require.NoError(t, err)
				assert.Equal(t, tt.outcome, string(b))
				assert.NotEmpty(t, response.Signal)
			}
		})
	}
}

func TestServer_WebhookClosedPool(t *testing.T) {

	srv, pool := newTestServer(t, local.NewExchange().WithQuote("AAPL", 50))
	require.NoError(t, pool.Close(context.Background()))
	code, response := post(t, srv.URL, `{"ticker":"AAPL","action":"buy"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Service unavailable", response.Error)
}

func TestServer_Routes(t *testing.T) {

	srv, _ := newTestServer(t, local.NewExchange())

	resp, err := http.Get(srv.URL + "/data")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/webhook")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	post(t, srv.URL, `{"ticker":"AAPL","action":"buy"}`)
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "signal_router_outcomes_total"))
	assert.True(t, strings.Contains(string(b), "signal_router_signals_total"))
}

func TestServer_Run(t *testing.T) {

	s := NewServer("test", 0).Add(Live())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * ShutdownTimeout):
		t.Fatal("server did not stop")
	}
}
