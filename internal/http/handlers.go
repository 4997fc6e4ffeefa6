package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Message("ok").
		With("timestamp", time.Now().Format(time.RFC3339)).
		With("uptime", time.Since(s.started).Round(time.Second).String()).
		Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if s.store == nil {
		checks["store"] = "not_configured"
		ready = false
	} else if err := s.store.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		ready = false
	} else {
		checks["store"] = "ok"
	}

	if !ready {
		s.logger.WarnContext(ctx, "Readiness check failed", "checks", checks)
		ErrorResponse(http.StatusServiceUnavailable, "not_ready").With("checks", checks).Write(w)
		return
	}
	NewResponse().Message("ready").With("checks", checks).Write(w)
}

// handleMetrics reports request, rate limit, security and cache counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	req := s.tracer.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	sec := s.detector.GetMetrics()

	caches := map[string]any{}
	if s.dashboard != nil {
		st := s.dashboard.CacheStats()
		caches["series"] = map[string]any{"hits": st.Hits, "misses": st.Misses, "size": st.Size}
	}
	if s.sessions != nil {
		st := s.sessions.Stats()
		caches["sessions"] = map[string]any{"hits": st.Hits, "misses": st.Misses, "size": st.Size}
	}

	NewResponse().
		Message("metrics").
		With("started", humanize.Time(s.started)).
		With("requests", map[string]any{
			"total":               req.TotalRequests,
			"clientErrors":        req.ClientErrors,
			"serverErrors":        req.ServerErrors,
			"averageResponseTime": (time.Duration(req.AverageResponseTime) * time.Microsecond).String(),
		}).
		With("rateLimit", map[string]any{
			"allowed":       rl.Allowed,
			"rejected":      rl.Rejected,
			"activeClients": rl.ClientCount,
		}).
		With("security", map[string]any{
			"suspicious": sec.SuspiciousRequests,
			"blocked":    sec.BlockedRequests,
		}).
		With("caches", caches).
		Write(w)
}
