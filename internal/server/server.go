package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mindful-paint/internal/config"
	"mindful-paint/internal/logger"
	"mindful-paint/internal/relay"
)

const shutdownTimeout = 5 * time.Second

// Server serves the static page and the relay websocket on one port.
type Server struct {
	cfg        *config.Config
	svc        *relay.Service
	log        *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// New wires the routes. It fails only when the static directory cannot be
// read.
func New(cfg *config.Config, svc *relay.Service, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg: cfg,
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the relay is open to any page
			},
		},
		clients: make(map[*Client]struct{}),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))
	if err := s.setupRoutes(engine); err != nil {
		return nil, err
	}
	s.engine = engine

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes(r *gin.Engine) error {
	assets, index, err := staticFiles(s.cfg.Server.StaticDir)
	if err != nil {
		return fmt.Errorf("load static files: %w", err)
	}

	page := func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	}
	r.GET("/", page)
	r.GET("/room/:roomId", page)
	r.StaticFS("/static", assets)

	r.GET("/ws", s.handleWebSocket)
	r.GET("/healthz", s.handleHealth)
	r.GET("/api/rooms", s.handleRooms)
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Rooms())
}

// Start serves until ctx is done, SIGINT or SIGTERM arrives, or the
// listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		s.log.Info("context cancelled")
	case sig := <-sigCh:
		s.log.Info("signal received", "signal", sig.String())
	case err := <-errCh:
		return err
	}
	return s.Shutdown()
}

// Shutdown stops accepting requests and closes every websocket.
func (s *Server) Shutdown() error {
	s.log.Info("http server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.clients {
		c.Conn.Close()
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) track(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// requestLogger logs one line per request with the level chosen by status
// class.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, logger.Err(c.Errors.Last()))
		}
		log.LogAttrs(c.Request.Context(), level, "http_request", attrs...)
	}
}
