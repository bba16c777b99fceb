package lobby

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// the access log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request's method, path, status, and
// duration, and stamps an X-Request-ID correlation header generated from
// google/uuid.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		netlog.Printf("%s %s %d %v request_id=%s", r.Method, r.RequestURI, wrapped.statusCode, time.Since(start), requestID)
	})
}

// corsMiddleware adds permissive CORS headers — this is a public registry
// polled by emulator frontends from arbitrary origins, mirroring the
// teacher's allow-all policy.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
