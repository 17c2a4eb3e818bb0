package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"smartfin/internal/log"
	"smartfin/internal/middleware/ratelimit"
	"smartfin/internal/middleware/security"
	"smartfin/internal/middleware/trace"
	"smartfin/internal/services"
	"smartfin/internal/session"
	appweb "smartfin/web"
)

// Pinger checks that the SmartFin API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the pages need.
type Deps struct {
	Sessions *session.Manager
	Auth     *services.AuthService
	Ledger   *services.LedgerService
	API      Pinger
	Logger   *log.Logger
	// Templates overrides the embedded templates, for tests.
	Templates fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger
	errors    *log.StructuredLogger

	sessions *session.Manager
	auth     *services.AuthService
	ledger   *services.LedgerService
	api      Pinger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime    time.Time
	mutations int64
	logins    int64
	apiErrors int64
}

func (m *appMetrics) incMutations() { atomic.AddInt64(&m.mutations, 1) }
func (m *appMetrics) incLogins()    { atomic.AddInt64(&m.logins, 1) }
func (m *appMetrics) incAPIErrors() { atomic.AddInt64(&m.apiErrors, 1) }

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger:           httpLogger,
		errors:           log.NewStructuredLogger(httpLogger),
		sessions:         deps.Sessions,
		auth:             deps.Auth,
		ledger:           deps.Ledger,
		api:              deps.API,
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	templatesFS := deps.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		httpLogger.Error("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
	} else {
		s.templates = t
	}

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Pages see the restored session; gated ones require it.
	open := func(h http.HandlerFunc) http.Handler {
		return s.sessions.Middleware(security.NoStore(h))
	}
	gated := func(h http.HandlerFunc) http.Handler {
		return s.sessions.Middleware(security.NoStore(session.Require(h)))
	}

	mux.Handle("GET /{$}", open(s.handleHome))
	mux.Handle("GET /login", open(s.handleLoginPage))
	mux.Handle("POST /login", open(s.handleLogin))
	mux.Handle("GET /register", open(s.handleRegisterPage))
	mux.Handle("POST /register", open(s.handleRegister))
	mux.Handle("POST /logout", open(s.handleLogout))

	mux.Handle("GET /dashboard", gated(s.handleDashboard))
	mux.Handle("GET /transactions", gated(s.handleTransactions))
	mux.Handle("POST /transactions", gated(s.handleSaveTransaction))
	mux.Handle("POST /transactions/{id}", gated(s.handleSaveTransaction))
	mux.Handle("GET /budgets", gated(s.handleBudgets))
	mux.Handle("POST /budgets", gated(s.handleSetBudget))
	mux.Handle("GET /goals", gated(s.handleGoals))
	mux.Handle("POST /goals", gated(s.handleSaveGoal))
	mux.Handle("POST /goals/{id}", gated(s.handleSaveGoal))
	mux.Handle("GET /analytics", gated(s.handleAnalytics))
	mux.Handle("GET /profile", gated(s.handleProfile))

	mux.HandleFunc("/", s.handleUnknown)

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.logger, s.onRateLimit)(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(s.logger)(h)
	h = s.traceMiddleware.Middleware(h)
	h = s.securityDetector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	msg := "Too many requests. Please wait a minute and try again."
	if IsHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification(msg).
			Write(w)
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
