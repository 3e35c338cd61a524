package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// NewHandler returns the production handler (mux + observability middleware).
// Tests can use NewMux directly to keep the access log out of the way.
func NewHandler(opt Options) http.Handler {
	return withObservability(NewMux(opt))
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func withObservability(next http.Handler) http.Handler {
	logger := log.With().Str("component", "http").Logger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}

		pattern := r.Pattern
		if pattern == "" {
			pattern = r.Method + " " + r.URL.Path
		}
		metricsIncRequest(pattern, status)

		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		ev := logger.Info()
		if status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("pattern", pattern).
			Int("status", status).
			Dur("dur", time.Since(start)).
			Int("bytes", sw.bytes).
			Msg("request")
	})
}
