// Package server serves the static application under test.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formcheck/internal/config"
)

// Server is a static file server over one directory. It is started once per
// run and only serves reads.
type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger
	router chi.Router

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error
}

// New checks that cfg.Dir exists and builds the router.
func New(cfg config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("content directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", cfg.Dir)
	}

	s := &Server{cfg: cfg, logger: logger.Named("content_server")}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(middleware.NoCache)
	r.Use(middleware.GetHead)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/*", http.FileServer(http.Dir(s.cfg.Dir)).ServeHTTP)
	return r
}

// requestLogger writes one debug line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		if ww.Status() >= http.StatusBadRequest {
			s.logger.Warn("Request failed.", fields...)
			return
		}
		s.logger.Debug("Served request.", fields...)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the configured address and serves in the background. Port 0
// picks a free port; use Addr or URL afterwards.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("content server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	s.serveErr = make(chan error, 1)

	go func(srv *http.Server, errc chan<- error) {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
		close(errc)
	}(s.httpServer, s.serveErr)

	s.logger.Info("Serving application under test.", zap.String("url", "http://"+ln.Addr().String()), zap.String("dir", s.cfg.Dir))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// URL returns the base URL of the served application.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Done is closed after the server stops; it yields the serve error, if any.
func (s *Server) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, errc := s.httpServer, s.serveErr
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("content server shutdown: %w", err)
	}
	if err, ok := <-errc; ok && err != nil {
		return fmt.Errorf("content server: %w", err)
	}
	s.logger.Info("Content server stopped.")
	return nil
}
