// Package dashboard serves the ledger and the requirement pool over HTTP.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nibzard/agileflow-go/internal/ledger"
	"github.com/nibzard/agileflow-go/internal/logging"
	"github.com/nibzard/agileflow-go/internal/requirements"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Store        *ledger.Store
	Requirements *requirements.Pool
	Logger       *log.Logger
	Version      string
	// Now is used for /health timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Server is the dashboard HTTP server. It reads the ledger on every request.
// A missing ledger is created empty on first read; an existing one is never
// modified.
type Server struct {
	store   *ledger.Store
	reqs    *requirements.Pool
	logger  *log.Logger
	version string
	now     func() time.Time
	router  chi.Router
}

// New builds a server and its routes.
func New(opts Options) *Server {
	s := &Server{
		store:   opts.Store,
		reqs:    opts.Requirements,
		logger:  opts.Logger,
		version: opts.Version,
		now:     opts.Now,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleTasks)
			r.Get("/next", s.handleNextTask)
			r.Get("/{id}", s.handleTask)
		})
		r.Post("/requirement", s.handleAddRequirement)
		r.Get("/requirements", s.handleListRequirements)
		r.Post("/requirements", s.handleAddRequirement)
		r.Post("/requirements/convert", s.handleConvertRequirement)
		r.Delete("/requirements", s.handleDeleteRequirement)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("dashboard stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs each request through the structured logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logf := s.logger.Debug
		if status >= http.StatusInternalServerError {
			logf = s.logger.Error
		}
		logf("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
