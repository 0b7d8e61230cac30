package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truthline/internal/config"
	"truthline/internal/edgar"
	"truthline/internal/fundamentals"
	"truthline/internal/metrics"
	"truthline/internal/strength"
	"truthline/pkg/model"
)

// fakePrices serves a linear series per known ticker ending at endDate
type fakePrices struct {
	slope map[string]float64
	calls []string
}

func (f *fakePrices) Name() string      { return "fake" }
func (f *fakePrices) IsAvailable() bool { return true }

func (f *fakePrices) GetDailyPrices(_ context.Context, ticker, endDate string, days int) ([]model.PriceRow, error) {
	f.calls = append(f.calls, ticker+":"+endDate)
	slope, ok := f.slope[ticker]
	if !ok {
		return nil, fmt.Errorf("unknown ticker %s", ticker)
	}
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return nil, err
	}
	rows := make([]model.PriceRow, days)
	for i := 0; i < days; i++ {
		d := end.AddDate(0, 0, i-days+1)
		rows[i] = model.PriceRow{Ticker: ticker, Date: d.Format(model.DateLayout), AdjClose: 100 + slope*float64(i)}
	}
	return rows, nil
}

type fakeTruth struct {
	report *model.FinancialTruth
	err    error
}

func (f *fakeTruth) Build(_ context.Context, ticker string) (*model.FinancialTruth, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	r.Ticker = strings.ToUpper(ticker)
	return &r, nil
}

func newTestServer(t *testing.T, prices *fakePrices, tb TruthBuilder, opts ...HandlerOption) (*Server, *metrics.Recorder) {
	t.Helper()
	rec := metrics.New()
	opts = append(opts,
		WithClock(func() time.Time { return time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC) }),
		WithOperationObserver(rec),
		WithHistoryDays(60),
	)
	h := NewHandler(prices, tb, zerolog.Nop(), opts...)
	return NewServer(config.DefaultConfig().Server, h, rec.Handler(), zerolog.Nop()), rec
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestRelativeStrength(t *testing.T) {
	prices := &fakePrices{slope: map[string]float64{"NVDA": 2, "SPY": 1}}
	srv, _ := newTestServer(t, prices, nil, WithSettings(model.RSSettings{WindowTradingDays: 20, MaTradingDays: 10, MinCoveragePct: 0.6}))

	rec := do(srv, http.MethodPost, "/api/relative-strength",
		`{"targets":[" nvda","NVDA"],"asOfDate":"2025-02-28","benchmarks":["spy","qqq"],"settings":{"maTradingDays":5}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out model.RSOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, "2025-02-28", out.AsOfDate)
	assert.Equal(t, model.RSSettings{WindowTradingDays: 20, MaTradingDays: 5, MinCoveragePct: 0.6}, out.Settings)
	require.Len(t, out.Results, 1)

	res := out.Results[0]
	assert.Equal(t, "NVDA", res.Ticker)
	require.Len(t, res.Benchmarks, 2)
	assert.Equal(t, "SPY", res.Benchmarks[0].Benchmark)
	assert.False(t, res.Benchmarks[0].Error.Valid)
	assert.True(t, res.Benchmarks[0].RSReturn.Float64 > 0)
	assert.Equal(t, strength.RSAbove, res.Benchmarks[0].RSVsMA.String)
	assert.Equal(t, strength.ErrNoBenchmarkData, res.Benchmarks[1].Error.String)

	// deduped union of targets and benchmarks, all at the requested date
	assert.ElementsMatch(t, []string{"NVDA:2025-02-28", "SPY:2025-02-28", "QQQ:2025-02-28"}, prices.calls)
}

func TestRelativeStrengthDefaults(t *testing.T) {
	prices := &fakePrices{slope: map[string]float64{"AMD": 1}}
	srv, _ := newTestServer(t, prices, nil)

	rec := do(srv, http.MethodPost, "/api/relative-strength", `{"targets":["AMD"],"asOfDate":"03/14/2025"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out model.RSOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "2025-03-14", out.AsOfDate)
	assert.Equal(t, model.DefaultRSSettings(), out.Settings)
	require.Len(t, out.Results, 1)
	assert.Len(t, out.Results[0].Benchmarks, 6)
	assert.Contains(t, prices.calls, "SETM:2025-03-14")
}

func TestRelativeStrengthValidation(t *testing.T) {
	tooMany := make([]string, MaxTargets+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("%q", fmt.Sprintf("T%d", i))
	}

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing targets", `{}`, "targets"},
		{"empty targets", `{"targets":[]}`, "targets"},
		{"too many targets", `{"targets":[` + strings.Join(tooMany, ",") + `]}`, "targets"},
		{"blank target", `{"targets":[""]}`, "targets[0]"},
		{"zero window", `{"targets":["A"],"settings":{"windowTradingDays":0}}`, "settings.windowTradingDays"},
		{"coverage above one", `{"targets":["A"],"settings":{"minCoveragePct":1.2}}`, "settings.minCoveragePct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakePrices{}, nil)
			rec := do(srv, http.MethodPost, "/api/relative-strength", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Details)
			assert.Equal(t, tt.field, resp.Details[0].Field)
		})
	}
}

func TestRelativeStrengthMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, &fakePrices{}, nil)
	rec := do(srv, http.MethodPost, "/api/relative-strength", `{"targets":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinancialTruth(t *testing.T) {
	report := &model.FinancialTruth{CIK: "0001045810", EntityName: "NVIDIA CORP"}
	srv, _ := newTestServer(t, &fakePrices{}, &fakeTruth{report: report})

	rec := do(srv, http.MethodGet, "/api/financial-truth/nvda", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.FinancialTruth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "NVDA", got.Ticker)
	assert.Equal(t, "NVIDIA CORP", got.EntityName)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestFinancialTruthErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown ticker", fmt.Errorf("ZZZZ: %w", edgar.ErrTickerNotFound), http.StatusNotFound},
		{"no quarterly data", fmt.Errorf("ACME: %w", fundamentals.ErrNoQuarterlyData), http.StatusUnprocessableEntity},
		{"upstream failure", errors.New("sec: 503"), http.StatusInternalServerError},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakePrices{}, &fakeTruth{err: tt.err})
			rec := do(srv, http.MethodGet, "/api/financial-truth/ACME", "")
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestBenchmarks(t *testing.T) {
	srv, _ := newTestServer(t, &fakePrices{}, nil, WithBenchmarks([]string{"spy", "iwm"}))

	rec := do(srv, http.MethodGet, "/api/benchmarks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BenchmarksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"SPY", "IWM"}, resp.Benchmarks)

	rec = do(srv, http.MethodGet, "/api/benchmarks?sector=biotech", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"SPY", "QQQ", "XBI"}, resp.Benchmarks)
}

func TestHealthAndMetrics(t *testing.T) {
	prices := &fakePrices{slope: map[string]float64{"AMD": 1}}
	srv, _ := newTestServer(t, prices, nil)

	rec := do(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	do(srv, http.MethodPost, "/api/relative-strength", `{"targets":["AMD"],"benchmarks":["AMD"]}`)

	rec = do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `truthline_operation_duration_seconds_count{operation="relative_strength",status="ok"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &fakePrices{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/relative-strength", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
