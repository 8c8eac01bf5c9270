package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	valuationapi "valuation_dashboard/pkg/api/valuation"
	"valuation_dashboard/pkg/core/config"
)

// NewRouter constructs the chi router with the default middleware stack and
// the valuation routes.
func NewRouter(cfg *config.Config, h *valuationapi.Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	timeout := 30 * time.Second
	if cfg.AppRequestTimeout > 0 {
		timeout = cfg.AppRequestTimeout
	}
	limit := cfg.AppRateLimit
	if limit <= 0 {
		limit = 60
	}

	r.Use(
		chimw.RealIP,
		chimw.RequestID,
		requestLogger(log),
		chimw.Recoverer,
		chimw.Timeout(timeout),
		httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			}),
		),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	h.MountRoutes(r)
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", chimw.GetReqID(r.Context())).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}
