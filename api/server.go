// Package api provides the HTTP server fronting the Yuna assistant: the
// route dispatcher, the session gate guarding protected routes and the
// account-management endpoints.
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuna-ai/yuna-server/pkg/config"
	"github.com/yuna-ai/yuna-server/pkg/identity"
	"github.com/yuna-ai/yuna-server/pkg/logger"
	"github.com/yuna-ai/yuna-server/pkg/services"
)

// Services bundles the external collaborators invoked behind the gate
type Services struct {
	Chat      services.ChatService
	Image     services.UpstreamService
	Audio     services.UpstreamService
	Audiobook services.UpstreamService
	Search    services.UpstreamService
	Analyzer  *services.Analyzer
	History   *services.HistoryService
}

// Server is the API server instance
type Server struct {
	config   *config.Config
	logger   logger.Logger
	identity *identity.Provider
	services Services
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, provider *identity.Provider, svcs Services, log logger.Logger) *Server {
	if cfg.LogLevel == "error" || cfg.LogLevel == "warn" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	s := &Server{
		config:   cfg,
		logger:   log,
		identity: provider,
		services: svcs,
		router:   router,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router exposes the underlying gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

// setupRoutes configures the route table. Protected entries are wrapped by
// the session gate; everything else is public.
func (s *Server) setupRoutes() {
	// Public endpoints
	s.router.GET("/", s.indexPage)
	s.router.GET("/main", s.loginPage)
	s.router.POST("/main", s.accountForm)
	s.router.GET("/services.html", s.servicesPage)
	s.router.GET("/apple-touch-icon.png", s.pwaIcon)

	// Protected endpoints
	protected := s.router.Group("/", s.sessionGate())
	{
		protected.GET("/yuna", s.appPage)
		protected.GET("/yuna.html", s.appPage)
		protected.POST("/message", s.handleMessage)
		protected.POST("/image", s.forwardTo("image"))
		protected.GET("/audio", s.forwardTo("audio"))
		protected.POST("/audio", s.forwardTo("audio"))
		protected.POST("/generate_audiobook", s.forwardTo("audiobook"))
		protected.POST("/analyze", s.handleAnalyze)
		protected.POST("/search", s.forwardTo("search"))
		protected.POST("/history", s.handleHistory)
		protected.GET("/logout", s.handleLogout)
	}

	// Static asset passthrough, then the fixed 404
	s.router.NoRoute(s.staticPassthrough)
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Info("starting server", map[string]interface{}{
		"addr": s.config.Addr(),
		"mode": gin.Mode(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// staticPassthrough serves files under the static directory for any path the
// route table does not claim. Anything else gets the fixed plain-text 404.
func (s *Server) staticPassthrough(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		name := strings.TrimPrefix(filepath.Clean("/"+c.Request.URL.Path), "/")
		name = strings.TrimPrefix(name, "static/")

		path := filepath.Join(s.config.Web.StaticDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
	}

	c.String(http.StatusNotFound, "This page does not exist.")
}
