package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/minhvu-dev/enricher/internal/enrichment/metrics"
)

// Middleware enforces per-route budgets before the handler runs. The client
// key is the X-API-Key header when present, otherwise the remote IP.
func Middleware(store Store, budgets Budgets, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := Key{ClientID: clientID(r), Route: r.URL.Path}
		budget := budgets.For(r.URL.Path)

		decision, err := store.Allow(r.Context(), key, budget)
		if err != nil {
			// Fail open: an unreachable store must not take the API down.
			slog.Warn("rate limit check failed, admitting request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if decision.Limited {
			metrics.RateLimitRejections.WithLabelValues(r.URL.Path).Inc()
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"code":       "rate_limited",
				"message":    fmt.Sprintf("rate limit exceeded for %s", r.URL.Path),
				"retryAfter": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientID(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
