package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// HTTPMetrics receives one observation per completed request.
type HTTPMetrics interface {
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

// ScrapeMetrics is the Prometheus side of request accounting.
type ScrapeMetrics interface {
	RecordHTTPRequest(method, route string, statusCode int, d time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestID reuses an incoming X-Request-ID or mints one, echoing it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		r.Header.Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// Logger attaches a request-scoped zerolog logger to the context and logs
// every completed request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.With().
			Str("request_id", r.Header.Get(requestIDHeader)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))

		var ev *zerolog.Event
		switch {
		case rec.status >= 500:
			ev = logger.Error()
		case rec.status >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		ev.Int("status", rec.status).Dur("duration", time.Since(start)).Msg("request completed")
	})
}

// Recovery turns a handler panic into a 500 response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Ctx(r.Context()).Error().
					Interface("error", err).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				respondJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "internal_error",
					"message": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Metrics records request counts and latency by route template.
func Metrics(otelMetrics HTTPMetrics, scrape ScrapeMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			elapsed := time.Since(start)
			if otelMetrics != nil {
				otelMetrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, float64(elapsed.Microseconds())/1000)
			}
			if scrape != nil {
				scrape.RecordHTTPRequest(r.Method, route, rec.status, elapsed)
			}
		})
	}
}
