package rest

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mindmap-backend/application/services"
	"mindmap-backend/interfaces/http/rest/handlers"
	"mindmap-backend/interfaces/http/rest/middleware"
	"mindmap-backend/pkg/auth"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"
)

// RouterConfig holds the HTTP edge settings
type RouterConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	DefaultXpertID string
	Debug          bool
}

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Router creates and configures the HTTP router
type Router struct {
	cfg       RouterConfig
	service   *services.MindmapService
	sessions  handlers.SessionCreator
	issuer    *auth.SessionIssuer
	metrics   *observability.Collector
	readiness []ReadinessCheck
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg RouterConfig,
	service *services.MindmapService,
	sessions handlers.SessionCreator,
	issuer *auth.SessionIssuer,
	metrics *observability.Collector,
	logger *zap.Logger,
	readiness ...ReadinessCheck,
) *Router {
	return &Router{
		cfg:       cfg,
		service:   service,
		sessions:  sessions,
		issuer:    issuer,
		metrics:   metrics,
		readiness: readiness,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errHandler := pkgerrors.NewErrorHandler(rt.logger, rt.cfg.Debug)
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: rt.cfg.RateLimitRPS,
		Burst:             rt.cfg.RateLimitBurst,
	}, errHandler)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(errHandler.Middleware)
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	router.Use(cors.Handler(corsOptions(rt.cfg.AllowedOrigins)))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(limiter.Handler)

		sessionHandler := handlers.NewSessionHandler(rt.sessions, rt.issuer, rt.cfg.DefaultXpertID, errHandler, rt.logger)
		r.Post("/create-session", sessionHandler.CreateSession)

		mindmapHandler := handlers.NewMindmapHandler(rt.service, errHandler, rt.logger)
		r.Get("/mindmaps", mindmapHandler.ListMindmaps)
		r.Route("/mindmap/{mindmapID}", func(r chi.Router) {
			r.Get("/", mindmapHandler.GetMindmap)
			r.Post("/", mindmapHandler.SaveMindmap)
			r.Post("/add-node", mindmapHandler.AddNode)
			r.Post("/add-branch", mindmapHandler.AddBranch)
			r.Post("/delete-node", mindmapHandler.DeleteNode)
			r.Post("/update-node", mindmapHandler.UpdateNodeText)
			r.Post("/toggle-collapse", mindmapHandler.ToggleCollapse)
			r.Post("/reset", mindmapHandler.ResetMindmap)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readinessCheck runs the registered dependency checks
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	for _, check := range rt.readiness {
		if err := check(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// corsOptions allows credentialed requests. A wildcard list echoes the
// request origin rather than sending a literal "*".
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	}
	return opts
}
