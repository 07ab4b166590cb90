package httpapi

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/shopledger/internal/logging"
)

// requestLogger logs basic request info at INFO and stores a request-scoped logger in the context.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			reqID := chimw.GetReqID(r.Context())
			rl := l.With("req_id", reqID)
			rl.Info("request started", "method", r.Method, "path", r.URL.Path)

			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), rl)))

			rl.Info("request complete",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// recoverer logs panics as ERROR and returns 500.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					reqID := chimw.GetReqID(r.Context())
					l.Error("panic", "req_id", reqID, "err", rec, "stack", string(debug.Stack()))
					writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requireJSON rejects bodies whose Content-Type is not application/json (parameters allowed) with 415.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
		if mime != "application/json" {
			writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
			return
		}
		next.ServeHTTP(w, r)
	})
}
