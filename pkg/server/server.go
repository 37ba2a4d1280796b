// Package server provides the HTTP surface for the chat relay service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"hungrycoders/chatrelay/pkg/chat"
	"hungrycoders/chatrelay/pkg/config"
	"hungrycoders/chatrelay/pkg/conversation"
	"hungrycoders/chatrelay/pkg/prompt"
	"hungrycoders/chatrelay/pkg/router"
	"hungrycoders/chatrelay/pkg/server/middleware"
	"hungrycoders/chatrelay/pkg/telemetry/metrics"
)

// streamPath is exempt from the request timeout middleware.
const streamPath = "/v1/chat/stream"

// Server is the HTTP server for chat traffic.
type Server struct {
	config       *config.Config
	orchestrator *chat.Orchestrator
	store        *conversation.Store
	router       *router.Router
	renderer     *prompt.Renderer
	metrics      *metrics.Metrics

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. metrics may be nil when exposition is disabled.
func New(cfg *config.Config, orch *chat.Orchestrator, store *conversation.Store, rt *router.Router, renderer *prompt.Renderer, m *metrics.Metrics) *Server {
	return &Server{
		config:       cfg,
		orchestrator: orch,
		store:        store,
		router:       rt,
		renderer:     renderer,
		metrics:      m,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", s.config.Server.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("POST "+streamPath, s.handleChatStream)
	mux.HandleFunc("POST /v1/prompts/code-review", s.handleCodeReview)
	mux.HandleFunc("POST /v1/prompts/ticket-analysis", s.handleTicketAnalysis)
	mux.HandleFunc("GET /v1/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /v1/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.metrics != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	var handler http.Handler = mux

	handler = middleware.Timeout(s.config.Server.RequestTimeout, streamPath)(handler)
	handler = middleware.CORS(s.corsConfig())(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	return handler
}

func (s *Server) corsConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:        s.config.Server.CORS.Enabled,
		AllowedOrigins: s.config.Server.CORS.AllowedOrigins,
		AllowedMethods: s.config.Server.CORS.AllowedMethods,
		AllowedHeaders: s.config.Server.CORS.AllowedHeaders,
		ExposedHeaders: s.config.Server.CORS.ExposedHeaders,
		MaxAge:         s.config.Server.CORS.MaxAge,
	}
}
