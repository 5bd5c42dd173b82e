// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"user_admin_backend/internal/config"
	"user_admin_backend/internal/console"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/jobs"
	"user_admin_backend/internal/metrics"
	"user_admin_backend/internal/middleware"
	"user_admin_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Jobs
	orphanScanJob *jobs.OrphanScanJob

	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	userHandler *user.Handler,
	consoleHandler *console.Handler,
	orphanScanJob *jobs.OrphanScanJob,
	rateLimiter *middleware.RateLimiter,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	verifier middleware.TokenVerifier,
	operators middleware.OperatorLookup,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics(collector))
	router.Use(cors.New(corsConfig(cfg)))

	// Create middleware instances
	authMW := middleware.AuthMiddleware(verifier, operators, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(directory.RoleAdmin)
	createMW := rateLimiter.Middleware()

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "User admin API is healthy!"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))

	v1 := router.Group("/api/v1")
	userHandler.RegisterRoutes(v1, authMW, adminRoleMW, createMW)
	consoleHandler.RegisterRoutes(v1, authMW, adminRoleMW, createMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:    httpServer,
		router:        router,
		cfg:           cfg,
		logger:        logger,
		orphanScanJob: orphanScanJob,
		rateLimiter:   rateLimiter,
	}, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 || (len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.RequestIDHeader}
	corsCfg.ExposeHeaders = []string{"Content-Length", "Retry-After", middleware.RequestIDHeader}
	return corsCfg
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.orphanScanJob != nil {
		if err := s.orphanScanJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start orphan scan job", zap.Error(err))
		}
	} else {
		s.logger.Info("Orphan scan job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
		zap.String("directory_backend", s.cfg.DirectoryBackend),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.orphanScanJob != nil {
		s.orphanScanJob.Stop()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
