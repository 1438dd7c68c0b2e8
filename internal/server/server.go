// Package server is the HTTP collaborator layer over the document services.
// It owns routing, payload decoding and status-code mapping; all document
// semantics live in internal/services.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lllllllleong/pdfvault/internal/models"
	"github.com/Lllllllleong/pdfvault/internal/services"
)

type Server struct {
	ingestor *services.Ingestor
	deriver  *services.Deriver
	catalog  *services.Catalog

	corsOrigins []string
	httpServer  *http.Server
}

func New(addr string, ingestor *services.Ingestor, deriver *services.Deriver, catalog *services.Catalog, corsOrigins []string) *Server {
	s := &Server{
		ingestor:    ingestor,
		deriver:     deriver,
		catalog:     catalog,
		corsOrigins: corsOrigins,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /documents", s.handleUpload)
	mux.HandleFunc("GET /documents", s.handleList)
	mux.HandleFunc("POST /documents/merge", s.handleMerge)
	mux.HandleFunc("GET /documents/{id}", s.handleGetInfo)
	mux.HandleFunc("GET /documents/{id}/content", s.handleDownload)
	mux.HandleFunc("GET /documents/{id}/text", s.handleGetText)
	mux.HandleFunc("POST /documents/{id}/split", s.handleSplit)
	mux.HandleFunc("POST /documents/{id}/rotate", s.handleRotate)
	mux.HandleFunc("POST /documents/{id}/annotate", s.handleAnnotate)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDelete)

	return s.withLogging(s.withCORS(mux))
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening.", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("Request handled.",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Filename")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCorruptDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
