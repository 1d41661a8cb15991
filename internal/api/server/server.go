package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/api/middleware"
	"github.com/feral-file/ff-mint-indexer/internal/api/rest"
	"github.com/feral-file/ff-mint-indexer/internal/api/shared/executor"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	clock      adapter.Clock
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, store store.Store, clock adapter.Clock) *Server {
	return &Server{
		config: cfg,
		store:  store,
		clock:  clock,
	}
}

// Router builds the gin engine with middleware and routes installed
func (s *Server) Router() *gin.Engine {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	exec := executor.NewExecutor(s.store, s.clock)
	rest.SetupRoutes(router, rest.NewHandler(exec))

	return router
}

// Start initializes and starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
