package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"valuation_dashboard/pkg/core/ingest"
	"valuation_dashboard/pkg/core/pipeline"
	"valuation_dashboard/pkg/core/report"
	"valuation_dashboard/pkg/core/statement"
	metrics "valuation_dashboard/pkg/core/valuation"
)

// Service is the pipeline surface the handlers need.
type Service interface {
	Run(ctx context.Context, ticker string, period statement.Period) (*pipeline.Report, error)
	Forecast(ctx context.Context, ticker string, opts pipeline.ForecastOptions) ([]metrics.ForecastPeriod, error)
	WorkingCapital(ctx context.Context, ticker string, window int, overlay bool) (*pipeline.WorkingCapitalReport, error)
}

// CacheBuster invalidates cached upstream responses.
type CacheBuster interface {
	Bump(ctx context.Context) error
}

type Handler struct {
	svc      Service
	cache    CacheBuster
	log      zerolog.Logger
	validate *validator.Validate
	timeout  time.Duration
}

// NewHandler creates the handler. cache may be nil, in which case the
// cache-clear endpoint is not mounted. timeout bounds each pipeline call.
func NewHandler(svc Service, cache CacheBuster, timeout time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		cache:    cache,
		log:      log,
		validate: validator.New(),
		timeout:  timeout,
	}
}

// MountRoutes registers the valuation endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/valuation", func(r chi.Router) {
		r.Post("/report", h.HandleReport)
		r.Get("/{ticker}/forecast", h.HandleForecast)
		r.Get("/{ticker}/working-capital", h.HandleWorkingCapital)
		r.Get("/{ticker}/summary", h.HandleSummary)
		if h.cache != nil {
			r.Post("/cache/clear", h.HandleClearCache)
		}
	})
}

type ReportRequest struct {
	Ticker string `json:"ticker" validate:"required,max=16"`
	Period string `json:"period,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// HANDLERS
// =============================================================================

// HandleReport runs the full pipeline for a ticker and returns the report JSON.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ticker, err := ingest.NormalizeTicker(req.Ticker)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	rep, err := h.svc.Run(ctx, ticker, statement.Period(req.Period))
	if err != nil {
		h.fail(w, ticker, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

// HandleForecast projects NOPAT; horizon, growth and reinvestment override
// the configured defaults.
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.ticker(w, r)
	if !ok {
		return
	}

	var opts pipeline.ForecastOptions
	q := r.URL.Query()
	if v := q.Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 50 {
			h.writeError(w, http.StatusBadRequest, "horizon must be an integer between 0 and 50")
			return
		}
		opts.Horizon = &n
	}
	for name, dst := range map[string]**float64{"growth": &opts.GrowthRate, "reinvestment": &opts.ReinvestmentFraction} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			h.writeError(w, http.StatusBadRequest, name+" must be a finite decimal number")
			return
		}
		*dst = &f
	}
	if opts.GrowthRate != nil && *opts.GrowthRate <= -1 {
		h.writeError(w, http.StatusBadRequest, "growth must be above -1")
		return
	}
	if opts.ReinvestmentFraction != nil && (*opts.ReinvestmentFraction < 0 || *opts.ReinvestmentFraction > 1) {
		h.writeError(w, http.StatusBadRequest, "reinvestment must be within [0,1]")
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	rows, err := h.svc.Forecast(ctx, ticker, opts)
	if err != nil {
		h.fail(w, ticker, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ticker": ticker, "periods": rows})
}

// HandleWorkingCapital returns the working-capital table over the last 3 or 5
// periods, with the macro overlay when overlay=true.
func (h *Handler) HandleWorkingCapital(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.ticker(w, r)
	if !ok {
		return
	}

	window := 0
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != 3 && n != 5) {
			h.writeError(w, http.StatusBadRequest, "window must be 3 or 5")
			return
		}
		window = n
	}
	overlay, _ := strconv.ParseBool(r.URL.Query().Get("overlay"))

	ctx, cancel := h.context(r)
	defer cancel()

	wc, err := h.svc.WorkingCapital(ctx, ticker, window, overlay)
	if err != nil {
		h.fail(w, ticker, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"report": wc,
		"rows":   report.WorkingCapitalRows(wc.Periods, wc.Overlay),
	})
}

// HandleSummary renders the metric table as json rows (default), markdown or html.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ticker, ok := h.ticker(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "markdown", "html":
	default:
		h.writeError(w, http.StatusBadRequest, "format must be json, markdown or html")
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	rep, err := h.svc.Run(ctx, ticker, "")
	if err != nil {
		h.fail(w, ticker, err)
		return
	}

	switch format {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(report.Markdown(rep)))
	case "html":
		html, err := report.HTML(report.Markdown(rep))
		if err != nil {
			h.log.Error().Err(err).Str("ticker", ticker).Msg("render summary")
			h.writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"ticker": rep.Ticker,
			"period": rep.Period,
			"run_id": rep.RunID,
			"rows":   report.Rows(rep),
		})
	}
}

// HandleClearCache invalidates every cached upstream response.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Bump(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("cache clear failed")
		h.writeError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) ticker(w http.ResponseWriter, r *http.Request) (string, bool) {
	ticker, err := ingest.NormalizeTicker(chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return ticker, true
}

func (h *Handler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// fail maps pipeline errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, ticker string, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, ingest.ErrInvalidTicker), errors.Is(err, pipeline.ErrInvalidOption):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, statement.ErrEmptyStatement):
		status, msg = http.StatusNotFound, statement.ErrEmptyStatement.Error()
	case errors.Is(err, pipeline.ErrUnknownPeriod):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "upstream timeout"
	case errors.Is(err, pipeline.ErrDataUnavailable):
		status, msg = http.StatusBadGateway, pipeline.ErrDataUnavailable.Error()
	}

	ev := h.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).Str("ticker", ticker).Int("status", status).Msg("valuation request failed")
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
