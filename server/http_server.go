package server

import (
	"context"
	"net/http"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/ingest"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const healthMessage = "Log ingester is running"

// StatusSource provides the counters served on /api/stats.
type StatusSource interface {
	Snapshot() ingest.Snapshot
}

type Server struct {
	addr   string
	status StatusSource
	server *http.Server
}

// StatsResponse is the body of /api/stats.
type StatsResponse struct {
	Status ingest.Snapshot `json:"status"`
	Now    time.Time       `json:"now"`
}

// NewServer creates a status server listening on addr.
func NewServer(addr string, status StatusSource) *Server {
	s := &Server{addr: addr, status: status}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(healthMessage))
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := StatsResponse{
			Status: s.status.Snapshot(),
			Now:    time.Now().UTC(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Error().Err(err).Msg("Error encoding stats response")
		}
	})

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Start serves until Shutdown is called; it then returns http.ErrServerClosed.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("HTTP status server is running")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
