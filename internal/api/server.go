// Package api exposes the analytics service over HTTP: dataset upload,
// summaries and charts, model training, and prediction.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/agrodata/plantio/internal/analytics"
	"github.com/agrodata/plantio/internal/config"
	"github.com/agrodata/plantio/internal/db"
	"github.com/agrodata/plantio/internal/httputil"
	"github.com/agrodata/plantio/internal/ml"
	"github.com/agrodata/plantio/internal/version"
)

// Server handles the HTTP interface for the crop analytics service.
type Server struct {
	address string
	db      *db.DB
	cfg     *config.ServiceConfig
	charts  *analytics.ChartBuilder
	trainer *ml.Trainer
	pred    *ml.Predictor
	server  *http.Server
}

// ServerConfig contains configuration options for the web server.
type ServerConfig struct {
	Address string
	DB      *db.DB
	Config  *config.ServiceConfig

	// Store overrides the artifact store; defaults to the sqlite-backed
	// store over DB. Tests inject an in-memory store here.
	Store ml.ArtifactStore
}

// NewServer creates a new web server with the provided configuration.
func NewServer(sc ServerConfig) *Server {
	cfg := sc.Config
	if cfg == nil {
		cfg = config.Empty()
	}
	store := sc.Store
	if store == nil {
		store = &ml.SQLStore{DB: sc.DB}
	}

	s := &Server{
		address: sc.Address,
		db:      sc.DB,
		cfg:     cfg,
		charts:  analytics.NewChartBuilder(cfg.CropSynonyms, cfg.GetChartCrop()),
		trainer: &ml.Trainer{Store: store},
		pred:    &ml.Predictor{Store: store},
	}

	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.setupRoutes(),
	}

	return s
}

// setupRoutes configures the HTTP routes and handlers.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/train", s.handleTrain)
	mux.HandleFunc("/api/retrain", s.handleTrain)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/options/crops", s.handleCropOptions)
	mux.HandleFunc("/api/options/seasons", s.handleSeasonOptions)
	mux.HandleFunc("/api/charts/production", s.handleProductionChart)

	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}

	return corsMiddleware(mux)
}

// ServeMux returns the routed handler, for tests driving the server through
// httptest.
func (s *Server) ServeMux() http.Handler {
	return s.server.Handler
}

// corsMiddleware allows browser frontends on any origin to call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Close shuts down the web server.
func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	httputil.WriteJSONOK(w, v)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	httputil.WriteJSONError(w, status, msg)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "plantio", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}
