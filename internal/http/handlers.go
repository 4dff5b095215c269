package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"billed/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	case s.ready == nil:
		checks["store"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Store readiness check failed", log.FieldError, err)
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	checks["drafts"] = map[string]any{
		"entries": s.drafts.Size(),
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	m := s.appMetrics
	uptime := time.Since(m.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "http_requests_errors_total{class=\"4xx\"} %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "http_requests_errors_total{class=\"5xx\"} %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_microseconds Average response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_microseconds gauge\n")
	fmt.Fprintf(w, "http_response_time_microseconds %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP proofs_uploaded_total Proofs accepted by the new bill form\n")
	fmt.Fprintf(w, "# TYPE proofs_uploaded_total counter\n")
	fmt.Fprintf(w, "proofs_uploaded_total %d\n\n", atomic.LoadInt64(&m.proofsUploaded))

	fmt.Fprintf(w, "# HELP proofs_rejected_total Proofs refused for their file type\n")
	fmt.Fprintf(w, "# TYPE proofs_rejected_total counter\n")
	fmt.Fprintf(w, "proofs_rejected_total %d\n\n", atomic.LoadInt64(&m.proofsRejected))

	fmt.Fprintf(w, "# HELP bills_submitted_total Bills submitted from the new bill form\n")
	fmt.Fprintf(w, "# TYPE bills_submitted_total counter\n")
	fmt.Fprintf(w, "bills_submitted_total %d\n\n", atomic.LoadInt64(&m.billsSubmitted))

	fmt.Fprintf(w, "# HELP bill_drafts Upload drafts waiting for submission\n")
	fmt.Fprintf(w, "# TYPE bill_drafts gauge\n")
	fmt.Fprintf(w, "bill_drafts %d\n\n", s.drafts.Size())

	fmt.Fprintf(w, "# HELP bill_drafts_expired_total Drafts dropped before submission\n")
	fmt.Fprintf(w, "# TYPE bill_drafts_expired_total counter\n")
	fmt.Fprintf(w, "bill_drafts_expired_total %d\n\n", atomic.LoadInt64(&m.draftsExpired))

	fmt.Fprintf(w, "# HELP template_render_failures_total Page renders that failed\n")
	fmt.Fprintf(w, "# TYPE template_render_failures_total counter\n")
	fmt.Fprintf(w, "template_render_failures_total %d\n\n", atomic.LoadInt64(&m.renderFailures))

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	fmt.Fprintf(w, "blocked_requests_total %d\n\n", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
