package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"liquidationRouter/internal/amm"
	"liquidationRouter/internal/metrics"
)

// Config holds HTTP server settings.
type Config struct {
	Auth           AuthConfig
	RequestTimeout time.Duration
}

// Server exposes the router engine over HTTP.
type Server struct {
	engine  *amm.Engine
	auth    *Authenticator
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
	health  func(context.Context) error
}

// NewServer builds a Server. health, when set, backs /healthz.
func NewServer(cfg Config, engine *amm.Engine, m *metrics.Metrics, health func(context.Context) error, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		engine:  engine,
		auth:    NewAuthenticator(cfg.Auth, logger),
		metrics: m,
		logger:  logger,
		timeout: timeout,
		health:  health,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/settings", s.getSettings)
		v1.Get("/protocols/{address}", s.getProtocol)
		v1.Get("/protocols/{address}/nonce", s.nonceStatus)
		v1.Get("/routes", s.findRoute)
		v1.Get("/swaps", s.swapHistory)

		v1.Group(func(authed chi.Router) {
			authed.Use(s.auth.Middleware)

			authed.Post("/settings/init", s.initSettings)
			authed.Put("/settings", s.updateSettings)
			authed.Post("/protocols", s.registerProtocol)
			authed.Post("/protocols/{address}/disable", s.disableProtocol)
			authed.Post("/swaps", s.executeSwap)
			authed.Post("/liquidations/auto", s.autoSwap)
			authed.Post("/callbacks", s.validateCallback)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains connections.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := s.context(r.Context())
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSONError(w, http.StatusServiceUnavailable, "Unavailable", "dependency check failed")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// observe records an engine outcome.
func (s *Server) observe(operation string, err error) {
	s.metrics.ObserveOperation(operation, amm.Kind(err))
}
