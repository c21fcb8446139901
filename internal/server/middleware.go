package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/smazurov/metricsd/internal/logging"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// HTTPLoggingMiddleware logs HTTP requests with appropriate log levels based on status codes.
// Successful requests for metricsPath are logged at debug since scrapers hit it on a timer.
// A nil logger uses the "http" module logger.
func HTTPLoggingMiddleware(logger *slog.Logger, metricsPath string, next http.Handler) http.Handler {
	if logger == nil {
		logger = logging.GetLogger("http")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		logAttrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.Int("status", status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("duration", time.Since(start)),
		}
		if r.URL.RawQuery != "" {
			logAttrs = append(logAttrs, slog.String("query", r.URL.RawQuery))
		}
		if enc := r.Header.Get("Accept-Encoding"); enc != "" {
			logAttrs = append(logAttrs, slog.String("accept_encoding", enc))
		}
		if ua := r.UserAgent(); ua != "" {
			logAttrs = append(logAttrs, slog.String("user_agent", ua))
		}

		message := "HTTP request completed"
		switch {
		case status >= 500:
			logger.LogAttrs(r.Context(), slog.LevelError, message, logAttrs...)
		case status >= 400:
			logger.LogAttrs(r.Context(), slog.LevelWarn, message, logAttrs...)
		case r.URL.Path == metricsPath:
			logger.LogAttrs(r.Context(), slog.LevelDebug, message, logAttrs...)
		default:
			logger.LogAttrs(r.Context(), slog.LevelInfo, message, logAttrs...)
		}
	})
}
