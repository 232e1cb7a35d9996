// Package server wires the router, middleware and handlers, and runs the
// HTTP server with graceful shutdown.
//
// New is the composition root for everything behind the router:
//
//	judge0.Client    → ExecutionService → session.State.RunWith ← page + /api/execute
//	assistant.Client → AssistantService → session.State.AskWith ← page + /api/assist
//
// Handlers only see the service layer through the session.Runner and
// session.Asker interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/online-compiler/internal/assistant"
	"github.com/sakif/online-compiler/internal/executor/judge0"
	"github.com/sakif/online-compiler/internal/handler"
	"github.com/sakif/online-compiler/internal/middleware"
	"github.com/sakif/online-compiler/internal/service"
	"github.com/sakif/online-compiler/internal/session"
	"github.com/sakif/online-compiler/web"
)

// Config holds server configuration.
type Config struct {
	Port           int
	Judge0         judge0.Config
	Assistant      assistant.Config
	AllowedOrigins []string
	SessionSecret  string // empty: random per process
	SessionIdleTTL time.Duration
}

// Server represents the HTTP server and all its dependencies.
// It owns the session store, whose janitor runs between Start and shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger

	judge0    *judge0.Client
	assistant *assistant.Client
	sessions  *session.Store
	tokens    *session.Tokens
}

// New builds the clients, services and handlers and sets up the routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		var err error
		if secret, err = session.RandomSecret(); err != nil {
			return nil, err
		}
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	tokens, err := session.NewTokens(secret)
	if err != nil {
		return nil, fmt.Errorf("creating session tokens: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		judge0:    judge0.New(cfg.Judge0, logger),
		assistant: assistant.New(cfg.Assistant, logger),
		sessions:  session.NewStore(cfg.SessionIdleTTL, logger),
		tokens:    tokens,
	}

	if !s.judge0.Configured() {
		logger.Warn("JUDGE0_BASE_URL not set, running code will report a configuration error")
	}
	if !s.assistant.Configured() {
		logger.Warn("OPENAI_API_KEY not set, the assistant will report a configuration error")
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET  /               → playground page
//	POST /run, /ask      → form actions, redirect to /
//	GET  /static/*       → embedded CSS/JS
//	GET  /api/languages  → language table
//	GET  /api/session    → session snapshot
//	POST /api/execute    → Execution Flow (JSON)
//	POST /api/assist     → Assistant Flow (JSON)
//	GET  /healthz        → liveness
//	GET  /metrics        → Prometheus
//
// MIDDLEWARE ORDER: request id, real ip, access log, metrics, then panic
// recovery closest to the handlers so a recovered 500 is still logged and counted.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	infoHandler := handler.NewInfoHandler(s.judge0, s.assistant)
	s.router.Get("/healthz", infoHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	fileServer := http.FileServerFS(web.Static())
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	executionService := service.NewExecutionService(s.judge0, s.logger)
	assistantService := service.NewAssistantService(s.assistant, s.logger)

	playgroundHandler, err := handler.NewPlaygroundHandler(web.Templates(), executionService, assistantService, s.logger)
	if err != nil {
		return fmt.Errorf("creating playground handler: %w", err)
	}
	executeHandler := handler.NewExecuteHandler(executionService, s.logger)
	assistHandler := handler.NewAssistHandler(assistantService, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(session.Middleware(s.sessions, s.tokens, s.logger))

		r.Get("/", playgroundHandler.HandlePlayground)
		r.Post("/run", playgroundHandler.HandleRun)
		r.Post("/ask", playgroundHandler.HandleAsk)

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.config.AllowedOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
				ExposedHeaders:   []string{"X-Request-Id"},
				AllowCredentials: true,
				MaxAge:           300,
			}))

			r.Get("/languages", infoHandler.HandleLanguages)
			r.Get("/session", infoHandler.HandleSession)
			r.Post("/execute", executeHandler.HandleExecute)
			r.Post("/assist", assistHandler.HandleAssist)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and stops the session janitor.
func (s *Server) Start() error {
	s.sessions.Start()
	defer s.sessions.Stop()

	// WriteTimeout must outlast the slowest upstream call a form submit waits on.
	writeTimeout := max(s.config.Judge0.Timeout, s.config.Assistant.Timeout) + 15*time.Second

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("judge0Configured", s.judge0.Configured()),
			slog.Bool("assistantConfigured", s.assistant.Configured()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
