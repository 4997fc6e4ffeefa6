package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stockroom/internal/auth"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/middleware/ratelimit"
	"stockroom/internal/middleware/security"
	"stockroom/internal/middleware/trace"
	"stockroom/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on.
type Deps struct {
	Inventory *services.InventoryService
	Catalog   *services.CatalogService
	Records   *services.RecordService
	Users     *services.UserService
	Dashboard *services.DashboardService
	Sessions  *auth.SessionStore
	Store     Pinger
	Logger    *applog.Logger

	RateLimitPerMinute int
}

type Server struct {
	http.Server

	inventory *services.InventoryService
	catalog   *services.CatalogService
	records   *services.RecordService
	users     *services.UserService
	dashboard *services.DashboardService
	sessions  *auth.SessionStore
	store     Pinger
	logger    *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		inventory:   d.Inventory,
		catalog:     d.Catalog,
		records:     d.Records,
		users:       d.Users,
		dashboard:   d.Dashboard,
		sessions:    d.Sessions,
		store:       d.Store,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(headers.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.rateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.Middleware(authError))
			admin := auth.RequireRole(authError, core.RoleAdmin)

			r.Post("/auth/logout", s.handleLogout)

			r.Route("/users", func(r chi.Router) {
				r.Get("/current", s.handleCurrentUser)
				r.With(admin).Get("/all", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/update/{id}", s.handleUpdateUser)
				r.With(admin).Delete("/delete/{id}", s.handleDeleteUser)
				r.Get("/transactions/{id}", s.handleUserTransactions)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/all", s.handleListCategories)
				r.Get("/{id}", s.handleGetCategory)
				r.With(admin).Post("/add", s.handleCreateCategory)
				r.With(admin).Put("/update/{id}", s.handleUpdateCategory)
				r.With(admin).Delete("/delete/{id}", s.handleDeleteCategory)
			})

			r.Route("/products", func(r chi.Router) {
				r.Post("/add", s.handleCreateProduct)
				r.Put("/update/{id}", s.handleUpdateProduct)
				r.Get("/all", s.handleListProducts)
				r.Get("/search", s.handleSearchProducts)
				r.Get("/{id}", s.handleGetProduct)
				r.With(admin).Delete("/delete/{id}", s.handleDeleteProduct)
			})

			r.Route("/suppliers", func(r chi.Router) {
				r.Post("/add", s.handleCreateSupplier)
				r.Get("/all", s.handleListSuppliers)
				r.Get("/{id}", s.handleGetSupplier)
				r.Put("/update/{id}", s.handleUpdateSupplier)
				r.With(admin).Delete("/delete/{id}", s.handleDeleteSupplier)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/purchase", s.handlePurchase)
				r.Post("/sell", s.handleSell)
				r.Post("/return", s.handleReturn)
				r.Get("/all", s.handleListTransactions)
				r.Get("/by-month-year", s.handleTransactionsByMonth)
				r.Get("/{id}", s.handleGetTransaction)
				r.Put("/{id}", s.handleUpdateTransactionStatus)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/metrics", s.handleDashboardMetrics)
				r.Get("/series", s.handleSeries)
				r.Post("/series", s.handleSeriesFromFeed)
			})

			r.Route("/records", func(r chi.Router) {
				r.Get("/", s.handleListRecords)
				r.Post("/", s.handleCreateRecord)
				r.Get("/{id}", s.handleGetRecord)
				r.Put("/{id}", s.handleUpdateRecord)
				r.Delete("/{id}", s.handleDeleteRecord)
			})
		})
	})

	return r
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
