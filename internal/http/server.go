package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"recibos/internal/cache"
	"recibos/internal/log"
	"recibos/internal/middleware/ratelimit"
	"recibos/internal/middleware/security"
	"recibos/internal/middleware/trace"
	"recibos/internal/services"
	appweb "recibos/web"
)

const (
	// loadTimeout bounds a single data load made by a handler.
	loadTimeout          = 10 * time.Second
	cacheCleanupInterval = 10 * time.Minute
	staticMaxAge         = 3600
)

// Refresher queues a data refresh elsewhere, e.g. for the mirror worker.
// Servers without one refresh their in-process caches.
type Refresher interface {
	RequestRefresh(ctx context.Context) (string, error)
}

// Options configures NewServer.
type Options struct {
	Addr      string
	Logger    *log.Logger
	Refresher Refresher
	RateLimit ratelimit.Config
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// Server serves the dashboards and their HTMX partials.
type Server struct {
	http.Server
	templates *template.Template
	data      *services.DataService
	refresher Refresher
	logger    *log.Logger
	now       func() time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(data *services.DataService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		data:             data,
		refresher:        opts.Refresher,
		logger:           logger,
		now:              now,
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		cacheManager:     cache.NewManager(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(data.Cleaners()...)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.Templates(), "*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	static := http.StripPrefix("/static/", http.FileServer(http.FS(appweb.Static())))
	mux.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/", s.handleInvoicesPage)
	mux.HandleFunc("/calendar", s.handleCalendarPage)
	mux.HandleFunc("/classes", s.handleClassesPage)
	mux.HandleFunc("/entities", s.handleEntitiesPage)

	mux.HandleFunc("/ui/invoices", s.handleInvoicesPartial)
	mux.HandleFunc("/ui/calendar", s.handleCalendarPartial)
	mux.HandleFunc("/ui/classes", s.handleClassesPartial)
	mux.HandleFunc("/ui/entities", s.handleEntitiesPartial)

	mux.HandleFunc("/refresh", s.handleRefresh)
}

// middleware wraps the mux, outermost first: tracing, request logger,
// suspicious request detection, security headers, POST rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit, http.MethodPost)(next)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = log.Middleware(s.logger, trace.RequestID)(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerErrorNotification("Demasiados pedidos. Tente novamente dentro de um minuto.").
		Write(w)
}

// ListenAndServe starts serving and returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// loadContext bounds a handler's data loads.
func (s *Server) loadContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), loadTimeout)
}
