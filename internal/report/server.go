// Package report serves live migration progress over HTTP so an operator
// can watch a long run without tailing logs.
package report

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JSONOrona/redis-shard/internal/orchestrator"
)

type slotStatus struct {
	Slot          uint16   `json:"slot"`
	Completed     bool     `json:"completed"`
	Stage         string   `json:"stage"`
	KeysMoved     int      `json:"keys_moved"`
	KeysRemaining int      `json:"keys_remaining,omitempty"`
	Error         string   `json:"error,omitempty"`
	StaleMasters  []string `json:"stale_masters,omitempty"`
}

type runStatus struct {
	StartedAt time.Time    `json:"started_at"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Slots     []slotStatus `json:"slots"`
}

// Server exposes /status (per-slot outcomes so far) and /metrics.
type Server struct {
	server *http.Server

	mu        sync.Mutex
	startedAt time.Time
	slots     []slotStatus
	completed int
	failed    int
}

func NewServer(addr string) *Server {
	s := &Server{startedAt: time.Now()}

	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{Addr: addr, Handler: router}
	return s
}

// Record stores one slot outcome; wire it as the orchestrator's OnSlotDone.
func (s *Server) Record(result orchestrator.SlotResult) {
	status := slotStatus{
		Slot:          result.Slot,
		Completed:     result.Completed(),
		Stage:         result.Stage.String(),
		KeysMoved:     result.KeysMoved,
		KeysRemaining: result.KeysRemaining,
		StaleMasters:  result.StaleMasters(),
	}
	if result.Err != nil {
		status.Error = result.Err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append(s.slots, status)
	if status.Completed {
		s.completed++
	} else {
		s.failed++
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := runStatus{
		StartedAt: s.startedAt,
		Completed: s.completed,
		Failed:    s.failed,
		Slots:     append([]slotStatus(nil), s.slots...),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Start serves until Stop is called; run it in a goroutine.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop() error {
	return s.server.Close()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
