package api

import (
	"encoding/json"
	"log"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/uhyunpark/quotesim/pkg/sim"
	"github.com/uhyunpark/quotesim/pkg/storage"
)

// Server exposes stored backtest results over REST and streams live equity
// points over WebSocket. It is the interface the plotting front end consumes.
type Server struct {
	store  *storage.RunStore
	router *mux.Router
	hub    *Hub
}

func NewServer(store *storage.RunStore) *Server {
	s := &Server{
		store:  store,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/equity", s.handleGetEquity).Methods("GET")
	api.HandleFunc("/runs/{id}/fills", s.handleGetFills).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}

	response := make([]RunInfo, len(runs))
	for i, run := range runs {
		response[i] = runInfoFromMeta(run)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	meta, ok, err := s.store.GetRun(runID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load run", err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "run not found", "")
		return
	}
	respondJSON(w, runInfoFromMeta(meta))
}

func (s *Server) handleGetEquity(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	curve, err := s.store.LoadEquityCurve(runID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load equity curve", err.Error())
		return
	}

	response := make([]EquityEntry, len(curve))
	for i, pt := range curve {
		response[i] = EquityEntry{Timestamp: pt.Timestamp, Equity: equityValue(pt)}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetFills(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	fills, err := s.store.LoadFills(runID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load fills", err.Error())
		return
	}

	response := make([]FillInfo, len(fills))
	for i, f := range fills {
		response[i] = FillInfo{
			Timestamp:  f.Timestamp,
			Instrument: string(f.Instrument),
			Price:      f.Price,
			Qty:        f.Qty,
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from the runner's hooks)
// ==============================

// BroadcastEquity pushes a live equity point to every client subscribed to
// the run's channel.
func (s *Server) BroadcastEquity(runID string, pt sim.EquityPoint) {
	update := EquityUpdate{
		Type:      "equity",
		RunID:     runID,
		Timestamp: pt.Timestamp,
		Equity:    equityValue(pt),
	}
	s.hub.BroadcastToChannel("equity:"+runID, update)
}

// ==============================
// Helper Functions
// ==============================

// equityValue maps an equity point to its JSON value: nil (null) when the
// valuation was undefined, so clients can't confuse it with a zero.
func equityValue(pt sim.EquityPoint) *float64 {
	if !pt.Valid || math.IsNaN(pt.Equity) {
		return nil
	}
	v := pt.Equity
	return &v
}

func runInfoFromMeta(meta storage.RunMeta) RunInfo {
	info := RunInfo{
		ID:          meta.ID,
		StartedAt:   meta.StartedAt,
		Ticks:       meta.Ticks,
		FillCount:   meta.FillCount,
		FinalCash:   meta.FinalCash,
		Instruments: meta.Instruments,
	}
	if meta.FinalValid && !math.IsNaN(meta.FinalEquity) {
		v := meta.FinalEquity
		info.FinalEquity = &v
	}
	return info
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
