// Package server provides the HTTP REST API for the profile agent.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/devfolio/profile-agent/internal/config"
	"github.com/devfolio/profile-agent/internal/db"
	"github.com/devfolio/profile-agent/internal/pipeline"
	"github.com/devfolio/profile-agent/internal/profile"
	"github.com/devfolio/profile-agent/internal/server/middleware"
)

// Runner triggers a pipeline run for a subject.
type Runner interface {
	Process(ctx context.Context, username string) (*pipeline.Result, error)
}

// Composer builds the read-side profile document for a subject.
type Composer interface {
	Compose(ctx context.Context, kind profile.ArtifactKind, username string) (*profile.ComposedProfile, error)
}

// Server wires the pipeline, the composer and the identity store behind
// the HTTP surface.
type Server struct {
	httpServer *http.Server
	db         *db.DB
	pipeline   Runner
	composer   Composer
	jwt        *JWTService
	log        zerolog.Logger
}

// New connects the database and builds a ready-to-start server.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s := &Server{
		db:       database,
		pipeline: pipeline.New(cfg, log),
		composer: profile.NewComposer(cfg.PipelineDir, database, log),
		jwt:      NewJWTService(jwtConfig),
		log:      log,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // pipeline runs block the trigger request
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the router. Everything except the health check sits behind
// bearer-token authentication.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(s.jwt.AsTokenValidator()))
		r.Post("/process/{username}", s.handleProcess)
		r.Get("/get-filtered-data/{username}", s.handleFilteredData)
		r.Get("/get-translated-data/{username}", s.handleTranslatedData)
	})

	return r
}

// Start listens for requests until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-stop
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.db.Close()
	s.log.Info().Msg("server stopped")
	return nil
}

// requestLogger logs each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
