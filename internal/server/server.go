package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rishi-narain/ad-tester/internal/handler"
	"github.com/rishi-narain/ad-tester/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	router *gin.Engine
	srv    *http.Server
	log    *zap.Logger
}

// Options configure the HTTP surface. A nil Gatherer disables /metrics.
type Options struct {
	Port           string
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
}

func NewServer(h *handler.Handler, opts Options, log *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), middleware.CORSMiddleware(opts.AllowedOrigins))

	s := &Server{
		router: router,
		log:    log,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", opts.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	h.RegisterRoutes(router)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", zap.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
