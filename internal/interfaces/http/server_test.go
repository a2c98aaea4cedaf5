package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitt/stockpulse/internal/backtest"
	"github.com/mwhitt/stockpulse/internal/config"
	"github.com/mwhitt/stockpulse/internal/consensus"
	"github.com/mwhitt/stockpulse/internal/engine"
	"github.com/mwhitt/stockpulse/internal/ledger"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/metrics"
	"github.com/mwhitt/stockpulse/internal/regime"
	"github.com/mwhitt/stockpulse/internal/sizing"
)

type stubHistory struct {
	bars []market.PricePoint
	err  error
}

func (s stubHistory) History(_ context.Context, _ string, _ string) ([]market.PricePoint, error) {
	return s.bars, s.err
}

func uptrendBars(n int) []market.PricePoint {
	bars := make([]market.PricePoint, n)
	t0 := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		close := 100 + float64(i)
		bars[i] = market.PricePoint{
			Time:  t0.AddDate(0, 0, i),
			Open:  close - 0.25,
			High:  close + 0.5,
			Low:   close - 0.5,
			Close: close,
		}
	}
	return bars
}

func testServer(t *testing.T, history market.HistoryProvider, broker engine.Broker) *httptest.Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	agg := consensus.NewAggregator(regime.DefaultConfig())
	risk := sizing.RiskParameters{
		AccountEquity:          100000,
		RiskPerTradePercent:    0.02,
		MaxPositionSizePercent: 0.10,
	}
	eng := engine.New(history, agg, backtest.DefaultConfig(), risk, broker, metrics.New(registry))
	srv := NewServer(config.Default().Server, eng, nil, registry)
	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeWithInlineBars(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp := postJSON(t, ts.URL+"/v1/analyze", map[string]any{"bars": uptrendBars(100)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sig consensus.Signal
	decodeBody(t, resp, &sig)
	assert.Equal(t, "BULLISH", string(sig.Sentiment))
	assert.Equal(t, "bull_trend", sig.Regime)
}

func TestAnalyzeBySymbol(t *testing.T) {
	ts := testServer(t, stubHistory{bars: uptrendBars(100)}, nil)

	resp := postJSON(t, ts.URL+"/v1/analyze", map[string]any{"symbol": "ACME", "period": "1y"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sig consensus.Signal
	decodeBody(t, resp, &sig)
	assert.Greater(t, sig.Confidence, 50.0)
}

func TestAnalyzeRequiresSymbolOrBars(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp := postJSON(t, ts.URL+"/v1/analyze", map[string]any{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeProviderOutageIsBadGateway(t *testing.T) {
	ts := testServer(t, stubHistory{err: fmt.Errorf("vendor: %w", market.ErrDataUnavailable)}, nil)

	resp := postJSON(t, ts.URL+"/v1/analyze", map[string]any{"symbol": "ACME"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBacktestWithInlineBars(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp := postJSON(t, ts.URL+"/v1/backtest", map[string]any{
		"symbol":          "ACME",
		"bars":            uptrendBars(120),
		"initial_balance": 100000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report backtest.Report
	decodeBody(t, resp, &report)
	assert.Equal(t, "ACME", report.Symbol)
	assert.Equal(t, 100000.0, report.InitialBalance)
}

func TestBacktestRejectsBadBalance(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp := postJSON(t, ts.URL+"/v1/backtest", map[string]any{"symbol": "ACME", "initial_balance": 0})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTradeWithoutAccountIsUnavailable(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp := postJSON(t, ts.URL+"/v1/trade", map[string]any{
		"symbol": "ACME", "side": "BUY", "quantity": 1, "price": 100,
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTradeExecutesAndRejectsViaGate(t *testing.T) {
	account := ledger.NewAccount(100000, ledger.DefaultConfig(), nil, nil)
	ts := testServer(t, stubHistory{}, account)

	resp := postJSON(t, ts.URL+"/v1/trade", map[string]any{
		"symbol": "ACME", "side": "BUY", "quantity": 10, "price": 100,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res ledger.TradeResult
	decodeBody(t, resp, &res)
	assert.True(t, res.Success, res.Message)

	// A gate rejection is still a handled request.
	resp = postJSON(t, ts.URL+"/v1/trade", map[string]any{
		"symbol": "ACME", "side": "SELL", "quantity": 999, "price": 100,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decodeBody(t, resp, &res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "insufficient holdings")
}

func TestPortfolioEndpoint(t *testing.T) {
	account := ledger.NewAccount(100000, ledger.DefaultConfig(), nil, nil)
	ts := testServer(t, stubHistory{}, account)

	resp, err := http.Get(ts.URL + "/v1/portfolio")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pf ledger.Portfolio
	decodeBody(t, resp, &pf)
	assert.Equal(t, 100000.0, pf.Cash)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, stubHistory{}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
