package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coryb-xyz/sklonger/internal/config"
	"github.com/coryb-xyz/sklonger/internal/thread"
)

// Server is the HTTP server that serves thread pages, the poll endpoint,
// and the live-update websocket.
type Server struct {
	cfg        *config.Config
	assembler  *thread.Assembler
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server over the given assembler.
func NewServer(cfg *config.Config, assembler *thread.Assembler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		assembler: assembler,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /thread", s.handleThread)
	mux.HandleFunc("GET /profile/{handle}/post/{postID}", s.handleThreadByPath)
	mux.HandleFunc("GET /poll", s.handlePoll)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health/live", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     withLogging(logger, mux),
		ReadTimeout: 10 * time.Second,
		// No write timeout: thread pages stream for as long as the
		// chain takes to walk.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorStatus maps the fetch taxonomy onto HTTP statuses. Exhaustive over
// thread.ErrorKind.
func errorStatus(kind thread.ErrorKind) (status int, title string) {
	switch kind {
	case thread.KindInvalidInput:
		return http.StatusBadRequest, "Bad Request"
	case thread.KindNotFound:
		return http.StatusNotFound, "Not Found"
	case thread.KindBlocked:
		return http.StatusForbidden, "Blocked"
	case thread.KindRateLimited:
		return http.StatusTooManyRequests, "Too Many Requests"
	case thread.KindMalformed:
		return http.StatusBadGateway, "Bad Gateway"
	case thread.KindTransient:
		return http.StatusServiceUnavailable, "Service Unavailable"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// errorMessage is the human-readable description shown for each failure
// condition.
func errorMessage(kind thread.ErrorKind, err error) string {
	switch kind {
	case thread.KindInvalidInput:
		return err.Error()
	case thread.KindNotFound:
		return "That post could not be found. It may have been deleted."
	case thread.KindBlocked:
		return "This thread is not visible to you."
	case thread.KindRateLimited:
		return "Bluesky is rate limiting requests. Please try again in a moment."
	case thread.KindMalformed:
		return "Bluesky returned an unexpected response."
	default:
		return "Bluesky could not be reached. Please try again later."
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush passes streaming flushes through to the wrapped writer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
