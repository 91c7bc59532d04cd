// Package api exposes the conversational advisor over REST.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/stockadvisor/internal/agent"
	"github.com/ajitpratap0/stockadvisor/internal/conversation"
	"github.com/ajitpratap0/stockadvisor/internal/metrics"
	"github.com/ajitpratap0/stockadvisor/internal/tools"
)

// Chat runs one conversation turn.
type Chat interface {
	ProcessMessage(ctx context.Context, userID, message string) (*agent.Response, error)
}

// HealthChecker verifies the model endpoint is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the REST API server
type Server struct {
	router   *gin.Engine
	addr     string
	server   *http.Server
	version  string
	chat     Chat
	service  *tools.Service
	registry *tools.Registry
	store    *conversation.Store
	model    HealthChecker
}

// Config contains server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	Chat     Chat
	Service  *tools.Service
	Registry *tools.Registry
	Store    *conversation.Store
	Model    HealthChecker
}

// NewServer creates a new API server
func NewServer(config Config) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(metrics.GinMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	server := &Server{
		router:   router,
		addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		version:  config.Version,
		chat:     config.Chat,
		service:  config.Service,
		registry: config.Registry,
		store:    config.Store,
		model:    config.Model,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the underlying handler, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // chat turns wait on the model
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping API server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	return nil
}

// LoggerMiddleware is a custom logging middleware for Gin
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Log request
		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		logEvent := log.Info().
			Str("method", method).
			Str("path", path).
			Str("query", query).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("client_ip", clientIP)

		if len(c.Errors) > 0 {
			logEvent.Str("errors", c.Errors.String())
		}

		logEvent.Msg("API request")
	}
}
