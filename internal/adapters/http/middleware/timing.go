package middleware

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"classbook/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
const DefaultSlowRequestMs = 500

// RequestIDHeader carries the per-request ID back to the client.
const RequestIDHeader = "X-Request-ID"

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to a protocol upgrade such as a websocket.
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(sw.ResponseWriter).Hijack()
	if err == nil {
		sw.hijacked = true
		sw.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that logs request duration and tags each
// response with a request ID. Requests at or above slowMs log at WARN,
// others at DEBUG. If collector is non-nil, entries are recorded for the
// perf snapshot.
// PRE: slowMs <= 0 selects DefaultSlowRequestMs
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)
			route := &routeHolder{}
			r = r.WithContext(context.WithValue(r.Context(), routeKey{}, route))

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			sw.hijacked = false
			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0
				if sw.hijacked {
					// Upgraded connections live for minutes; keep them out of request latency.
					slog.Debug("connection_closed", "request_id", reqID, "path", r.URL.Path, "duration_ms", durationMs)
					sw.ResponseWriter = nil
					statusWriterPool.Put(sw)
					return
				}
				level := slog.LevelDebug
				msg := "request"
				if durationMs >= threshold {
					level = slog.LevelWarn
					msg = "slow_request"
				}
				slog.Log(r.Context(), level, msg,
					"request_id", reqID,
					"method", r.Method,
					"path", r.URL.Path,
					"status", sw.status,
					"duration_ms", durationMs,
				)

				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       r.Method + " " + route.resolve(r),
						StatusCode: sw.status,
						DurationMs: durationMs,
						Timestamp:  start,
					})
				}

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

type routeKey struct{}

// routeHolder receives the matched mux pattern from deeper in the chain,
// where middleware has already replaced the request.
type routeHolder struct {
	pattern string
}

// MarkRoute records the mux pattern of r for the enclosing Timing middleware.
// Call it from a handler wrapper; it is a no-op outside Timing.
func MarkRoute(r *http.Request) {
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
		h.pattern = r.Pattern
	}
}

// resolve returns the matched pattern so per-session paths aggregate per
// route, falling back to the raw path.
func (h *routeHolder) resolve(r *http.Request) string {
	switch {
	case h.pattern != "":
		return strings.TrimPrefix(h.pattern, r.Method+" ")
	case r.Pattern != "":
		return strings.TrimPrefix(r.Pattern, r.Method+" ")
	}
	return r.URL.Path
}
