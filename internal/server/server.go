package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rueda-la-rola/leadgen/internal/board"
	"github.com/rueda-la-rola/leadgen/internal/generator"
	"github.com/rueda-la-rola/leadgen/internal/store"
	"github.com/rueda-la-rola/leadgen/pkg/places"
)

// Server is the dashboard HTTP API. All dependencies are constructed at
// startup and injected; handlers hold no hidden state beyond the board.
type Server struct {
	board   *board.Board
	store   store.Store
	places  places.Client
	gen     *generator.Generator
	mapsKey string
}

// New wires the API around its collaborators. mapsKey may be empty; the
// config endpoint then reports no map support.
func New(b *board.Board, st store.Store, pc places.Client, gen *generator.Generator, mapsKey string) *Server {
	return &Server{
		board:   b,
		store:   st,
		places:  pc,
		gen:     gen,
		mapsKey: mapsKey,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleConfig)
	r.Get("/search", s.handleSearch)
	r.Post("/generate", s.handleGenerate)
	r.Get("/assets/{id}", s.handleAsset)
	r.Get("/leads", s.handleLeads)
	r.Put("/leads/{placeID}/status", s.handleLeadStatus)
	r.Get("/board", s.handleBoard)

	return r
}

// requestLogger logs method, path, status and latency for every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
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

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

// respondError writes a JSON error body. Internal detail never reaches
// the client; callers log it first.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
