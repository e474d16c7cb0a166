// Package web provides the HTTP document explorer: a small JSON API plus a
// single static index page over the storage engine's CRUD surface, with a
// chi router and a graceful-shutdown Run loop.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cabewaldrop/docdb/internal/engine"
)

// Server is the HTTP front end for an open Engine.
type Server struct {
	router *chi.Mux
	port   int
	engine *engine.Engine
}

// NewServer creates a server bound to the given port, serving over engine.
func NewServer(port int, eng *engine.Engine) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	s := &Server{router: r, port: port, engine: eng}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/api/stats", s.handleAPIStats)
	s.router.Get("/api/pages/{pageID}", s.handleAPIPageStats)
	s.router.Get("/api/documents/{pageID}/{slotID}", s.handleAPIGetDocument)
	s.router.Post("/api/documents", s.handleAPIInsertDocument)
	s.router.Put("/api/documents/{pageID}/{slotID}", s.handleAPIUpdateDocument)
	s.router.Delete("/api/documents/{pageID}/{slotID}", s.handleAPIDeleteDocument)
	s.router.Post("/api/pages/{pageID}/compact", s.handleAPICompactPage)
}

// Router exposes the chi router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal or the
// server errors out, then drains in-flight requests before returning.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("docdb explorer listening on port %d\n", s.port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-done:
		fmt.Println("\nshutdown signal received, draining requests...")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	fmt.Println("server stopped")
	return nil
}
