package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports backing-store reachability. *pgxpool.Pool satisfies it;
// the in-memory index has no external dependency and passes nil.
type Pinger interface {
	Ping(ctx context.Context) error
}

// health is a liveness probe. Returns 200 OK with {"status":"ok"}.
func health(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness is a readiness probe. With a Pinger it verifies the backing
// store answers within two seconds; without one it always reports ready.
func readiness(pinger Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				logger.Warn("readiness probe failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "store_unreachable", "backing store unreachable", logger)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	}
}
