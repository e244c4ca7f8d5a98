package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/api/handlers"
	"github.com/fslarfn/toto-backend-sub000/internal/api/middleware"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
	"github.com/fslarfn/toto-backend-sub000/internal/realtime"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

// Dependencies are the services the HTTP layer routes to
type Dependencies struct {
	WorkOrders    *services.WorkOrderService
	DeliveryNotes *services.DeliveryNoteService
	Auth          *services.AuthService
	Subscriptions *services.SubscriptionService
	Hub           *realtime.Hub
	Verifier      middleware.Verifier
	Tracer        tracing.Tracer
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	deps       Dependencies
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, deps Dependencies) *Server {
	server := &Server{
		config: cfg,
		deps:   deps,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	return server
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.NewRelic(s.deps.Tracer.Application()))
	router.Use(middleware.Logger())
	if len(s.config.Server.CorsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CorsOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDKey},
			ExposeHeaders:    []string{middleware.RequestIDKey},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	authHandler := handlers.NewAuthHandler(s.deps.Auth)
	authHandler.RegisterRoutes(router)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.deps.Subscriptions)
	subscriptionHandler.RegisterRoutes(router)

	// Websocket clients pass the token as a query parameter
	ws := router.Group("", middleware.Auth(s.deps.Verifier, true))
	handlers.NewRealtimeHandler(s.deps.Hub).RegisterRoutes(ws)

	protected := router.Group("", middleware.Auth(s.deps.Verifier, false))
	handlers.NewWorkOrderHandler(s.deps.WorkOrders, s.deps.Tracer).RegisterRoutes(protected)
	handlers.NewStatusHandler(s.deps.WorkOrders, s.deps.Tracer).RegisterRoutes(protected)
	handlers.NewDeliveryNoteHandler(s.deps.DeliveryNotes, s.deps.Tracer).RegisterRoutes(protected)

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	authHandler.RegisterAdminRoutes(admin)
	subscriptionHandler.RegisterAdminRoutes(admin)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
