package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"truthline/internal/edgar"
	"truthline/internal/fundamentals"
	"truthline/internal/provider"
	"truthline/internal/strength"
	"truthline/internal/symbols"
	"truthline/internal/truth"
	"truthline/pkg/model"
)

// MaxTargets caps the targets of one relative strength request
const MaxTargets = 20

// TruthBuilder builds financial truth reports
type TruthBuilder interface {
	Build(ctx context.Context, ticker string) (*model.FinancialTruth, error)
}

// OperationObserver records the latency of request-level operations
type OperationObserver interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
}

// RSRequest is the body of POST /api/relative-strength
type RSRequest struct {
	Targets    []string               `json:"targets" validate:"required,min=1,max=20,dive,required,max=10"`
	AsOfDate   string                 `json:"asOfDate"` // malformed dates fall back to today
	Benchmarks []string               `json:"benchmarks" validate:"omitempty,max=20,dive,required,max=10"`
	Settings   model.SettingsOverride `json:"settings"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationError `json:"details,omitempty"`
}

// Handler serves the API routes
type Handler struct {
	prices      provider.PriceProvider
	truth       TruthBuilder
	settings    model.RSSettings
	benchmarks  []string
	historyDays int
	observer    OperationObserver
	log         zerolog.Logger
	now         func() time.Time
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithSettings sets the relative strength settings requests are merged onto
func WithSettings(s model.RSSettings) HandlerOption {
	return func(h *Handler) { h.settings = s }
}

// WithBenchmarks sets the benchmarks used when a request names none
func WithBenchmarks(b []string) HandlerOption {
	return func(h *Handler) {
		if len(b) > 0 {
			h.benchmarks = symbols.NormalizeList(b)
		}
	}
}

// WithHistoryDays sets how many daily rows are fetched per ticker
func WithHistoryDays(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.historyDays = n
		}
	}
}

// WithOperationObserver records request latency
func WithOperationObserver(o OperationObserver) HandlerOption {
	return func(h *Handler) { h.observer = o }
}

// WithClock overrides the clock used for the default as-of date
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates the API handler
func NewHandler(prices provider.PriceProvider, tb TruthBuilder, log zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		prices:      prices,
		truth:       tb,
		settings:    model.DefaultRSSettings(),
		benchmarks:  append([]string(nil), symbols.DefaultBenchmarks...),
		historyDays: provider.DefaultHistoryDays,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the API on e
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/relative-strength", h.handleRelativeStrength)
	api.GET("/financial-truth/:ticker", h.handleFinancialTruth)
	api.GET("/benchmarks", h.handleBenchmarks)
}

func (h *Handler) handleRelativeStrength(c echo.Context) error {
	var req RSRequest
	if errs := bindAndValidate(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Details: errs})
	}

	targets := symbols.NormalizeList(req.Targets)
	if len(targets) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing or empty targets array"})
	}

	asOfDate := req.AsOfDate
	if _, err := time.Parse(model.DateLayout, asOfDate); err != nil {
		asOfDate = h.now().UTC().Format(model.DateLayout)
	}

	benchmarks := symbols.NormalizeList(req.Benchmarks)
	if len(benchmarks) == 0 {
		benchmarks = h.benchmarks
	}

	start := time.Now()
	ctx := c.Request().Context()
	prices := provider.FetchMultiple(ctx, h.prices, symbols.Union(targets, benchmarks), asOfDate, h.historyDays, h.log, nil)
	if err := ctx.Err(); err != nil {
		h.observe("relative_strength", err, start)
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	}

	settings := req.Settings.Merge(h.settings)
	out := strength.ComputeRelativeStrength(targets, benchmarks, prices, asOfDate, settings.Override())
	h.observe("relative_strength", nil, start)

	return c.JSON(http.StatusOK, out)
}

func (h *Handler) handleFinancialTruth(c echo.Context) error {
	start := time.Now()
	report, err := h.truth.Build(c.Request().Context(), c.Param("ticker"))
	h.observe("financial_truth", err, start)

	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("ticker", c.Param("ticker")).Msg("financial truth failed")
		}
		return c.JSON(status, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

// BenchmarksResponse lists the benchmark universe of a sector
type BenchmarksResponse struct {
	Sector     symbols.Sector `json:"sector"`
	Benchmarks []string       `json:"benchmarks"`
}

func (h *Handler) handleBenchmarks(c echo.Context) error {
	sector := symbols.Sector(c.QueryParam("sector"))
	if sector == "" {
		return c.JSON(http.StatusOK, BenchmarksResponse{Benchmarks: h.benchmarks})
	}
	return c.JSON(http.StatusOK, BenchmarksResponse{Sector: sector, Benchmarks: symbols.BenchmarksFor(sector)})
}

func (h *Handler) observe(op string, err error, start time.Time) {
	if h.observer != nil {
		h.observer.ObserveOperation(op, err, time.Since(start))
	}
}

// statusFor maps report errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, truth.ErrInvalidTicker):
		return http.StatusBadRequest
	case errors.Is(err, edgar.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.Is(err, fundamentals.ErrNoQuarterlyData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
