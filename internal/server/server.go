package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/config"
	"github.com/ihor-metko/RSP-sub004/internal/di"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

// Server wraps the HTTP listener carrying the websocket endpoint.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// New builds the gin engine and http.Server around the container's handler.
func New(cfg *config.Config, container *di.Container, log *logger.Logger) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
		})
	})
	engine.GET("/ws", container.Handler.Serve)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: engine,
			// ReadTimeout would kill long-lived websocket connections, so
			// only the header read is bounded here.
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		},
		log: log,
	}
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown drains the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
