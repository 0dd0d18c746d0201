package moodsense

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the published pipeline state to the presentation layer:
// a JSON snapshot, a websocket feed, journal analytics, and the Prometheus
// scrape endpoint. All surfaces are read-only; clients never mutate state.
type Server struct {
	srv      *http.Server
	log      *log.Logger
	pipeline *Pipeline
	journal  *Journal
}

// NewServer builds the state server. journal may be nil, in which case
// /stats reports an empty summary.
func NewServer(addr string, pipeline *Pipeline, journal *Journal) *Server {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	mux := http.NewServeMux()

	server := &Server{
		srv: &http.Server{
			Addr:        addr,
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
			Handler:     mux,
		},
		log:      logger,
		pipeline: pipeline,
		journal:  journal,
	}

	mux.HandleFunc("/state", server.handleState)
	mux.HandleFunc("/stats", server.handleStats)
	mux.HandleFunc("/ws", server.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	return server
}

// Start blocks until the listener fails or the server is stopped.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.log.Printf("Starting state server on %s", s.srv.Addr)
		errChan <- s.srv.ListenAndServe()
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.log.Println("Shutting down state server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

// handleState serves the latest EmotionState snapshot. Before the first
// inference of a session there is nothing to report and 204 is returned.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.pipeline.State()
	if state == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		s.log.Printf("Failed to encode state: %v", err)
	}
}

// handleStats serves the journal analytics summary.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var records []SessionRecord
	if s.journal != nil {
		var err error
		records, err = s.journal.Load()
		if err != nil {
			s.log.Printf("Failed to load journal: %v", err)
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
	}

	summary := NewAnalytics(records).Summarize(time.Now())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		s.log.Printf("Failed to encode stats: %v", err)
	}
}
