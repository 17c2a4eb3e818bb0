package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"smartfin/internal/log"
	"smartfin/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady reports ready when templates parsed and the API answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name, reason string) {
		checks[name] = "failed: " + reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.api == nil {
		fail("api", "not configured")
	} else if err := s.api.Ping(ctx); err != nil {
		fail("api", err.Error())
	} else {
		checks["api"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("mutations_total", "counter", "Records created or updated through the API", atomic.LoadInt64(&s.appMetrics.mutations))
	metric("logins_total", "counter", "Successful sign-ins", atomic.LoadInt64(&s.appMetrics.logins))
	metric("api_errors_total", "counter", "Failed SmartFin API calls", atomic.LoadInt64(&s.appMetrics.apiErrors))
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests rejected by method", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

type feature struct {
	Title       string
	Description string
}

var homeFeatures = []feature{
	{"Expense Tracking", "Monitor your spending habits with detailed transaction logs and categorization."},
	{"Financial Goals", "Set and track your financial goals, from saving for a vacation to a down payment."},
	{"Powerful Analytics", "Visualize your financial data with insightful charts and predictive forecasts."},
	{"Smart Budgeting", "Create monthly budgets to stay on top of your finances and control your spending."},
	{"Email Alerts", "Get timely alerts about your budget status, upcoming bills, and goal progress."},
	{"Secure & Reliable", "Your data is securely saved. You have full control and can remove it at any time."},
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", s.page(r, "SmartFin", "home", homeFeatures))
}

// handleUnknown sends every unmapped path back to the landing page.
func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	s.logger.DebugContext(r.Context(), "Unknown path, redirecting home",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	if IsHTMX(r) {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type profileView struct {
	Username string
	Initial  string
	Email    string
	Joined   string
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	u := sess.User

	view := profileView{
		Username: u.Username,
		Initial:  u.Initial(),
		Email:    u.Email,
		Joined:   displayDate(u.CreatedAt),
	}
	if view.Username == "" {
		view.Username = "Anonymous User"
	}
	if view.Email == "" {
		view.Email = "No email provided."
	}
	s.render(w, r, http.StatusOK, "profile.html", s.page(r, "Profile", "profile", view))
}
