package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/metrics"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	cfg        Config
	logger     *slog.Logger
	validator  *requestValidator

	// Services
	oauthService driving.OAuthService
	postService  driving.PostService
	mediaService driving.MediaService
	runner       driving.QueueRunner
	authSource   AuthSource

	// Infrastructure
	db    Pinger // PostgreSQL health check
	redis Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// PostConnectRedirect is where the browser lands after a successful callback.
	PostConnectRedirect string

	// WorkerTriggerSecret guards POST /api/v1/worker/run. When empty the
	// trigger is rejected unless AllowUnauthenticatedTrigger is set.
	WorkerTriggerSecret         string
	AllowUnauthenticatedTrigger bool

	CORSOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                8080,
		Version:             "dev",
		PostConnectRedirect: "/",
	}
}

// Dependencies are the services and probes the server routes to.
type Dependencies struct {
	OAuth  driving.OAuthService
	Posts  driving.PostService
	Media  driving.MediaService
	Runner driving.QueueRunner

	AuthSource AuthSource

	DB    Pinger
	Redis Pinger // can be nil

	Logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PostConnectRedirect == "" {
		cfg.PostConnectRedirect = "/"
	}

	s := &Server{
		router:       http.NewServeMux(),
		cfg:          cfg,
		logger:       logger,
		validator:    newRequestValidator(),
		oauthService: deps.OAuth,
		postService:  deps.Posts,
		mediaService: deps.Media,
		runner:       deps.Runner,
		authSource:   deps.AuthSource,
		db:           deps.DB,
		redis:        deps.Redis,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.cfg.CORSOrigins).Handler(h)
	h = metrics.Middleware(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authSource)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())
	s.router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// OAuth flow
	s.router.Handle("GET /api/v1/oauth/authorize", authed(s.handleOAuthAuthorize))
	s.router.Handle("GET /api/v1/oauth/callback", authed(s.handleOAuthCallback))

	// Connection
	s.router.Handle("GET /api/v1/connection", authed(s.handleConnectionStatus))
	s.router.Handle("DELETE /api/v1/connection", authed(s.handleDisconnect))

	// Posts
	s.router.Handle("POST /api/v1/posts", authed(s.handleSchedulePost))
	s.router.Handle("GET /api/v1/posts", authed(s.handleListPosts))
	s.router.Handle("GET /api/v1/posts/stats", authed(s.handlePostStats))
	s.router.Handle("GET /api/v1/posts/{id}", authed(s.handleGetPost))
	s.router.Handle("POST /api/v1/posts/{id}/retry", authed(s.handleRetryPost))
	s.router.Handle("DELETE /api/v1/posts/{id}", authed(s.handleCancelPost))

	// Media
	s.router.Handle("POST /api/v1/media", authed(s.handleUploadMedia))

	// Worker trigger (shared secret, not user auth)
	s.router.Handle("POST /api/v1/worker/run",
		NewTriggerMiddleware(s.cfg.WorkerTriggerSecret, s.cfg.AllowUnauthenticatedTrigger).
			Handler(http.HandlerFunc(s.handleWorkerRun)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
