package httpapi

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz checks the store with a short deadline.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	if err := s.store.Ready(ctx); err != nil {
		writeErr(w, http.StatusServiceUnavailable, "store unavailable", "not_ready")
		return
	}
	w.WriteHeader(http.StatusOK)
}
