package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"venue-checkin/internal/common/config"
	"venue-checkin/internal/common/logger"
)

// Server exposes the Service over HTTP for the web/desktop front-end.
type Server struct {
	svc        *Service
	logger     logger.Logger
	httpServer *http.Server
}

func NewServer(svc *Service, cfg *config.ServerConfig, log logger.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: log.WithFields(map[string]interface{}{"component": "http"}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scan/latest", s.handleLatestScan)
	mux.HandleFunc("POST /api/member/find", s.handleFindMember)
	mux.HandleFunc("GET /api/plans", s.handlePlans)
	mux.HandleFunc("GET /api/plan-orders", s.handlePlanOrders)
	mux.HandleFunc("POST /api/watch/start", s.handleWatchStart)
	mux.HandleFunc("POST /api/watch/stop", s.handleWatchStop)
	mux.HandleFunc("GET /api/watch/status", s.handleWatchStatus)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		// SSE connections outlive the normal write window; WriteTimeout
		// stays 0 and /api/events relies on client disconnect instead.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- Handlers ---

func (s *Server) handleLatestScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.LatestScan())
}

func (s *Server) handleFindMember(w http.ResponseWriter, r *http.Request) {
	var req FindMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, MatchEnvelope{
			Error:     fmt.Sprintf("invalid request body: %v", err),
			ErrorCode: "INVALID_QUERY",
		})
		return
	}
	writeJSON(w, s.svc.FindMember(r.Context(), req))
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Plans(r.Context(), r.URL.Query().Get("memberId")))
}

func (s *Server) handlePlanOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.PlanOrders(r.Context(), r.URL.Query().Get("memberId")))
}

func (s *Server) handleWatchStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.StartWatch(context.WithoutCancel(r.Context())))
}

func (s *Server) handleWatchStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.StopWatch())
}

func (s *Server) handleWatchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.WatchStatus())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleEvents bridges the watcher's event channel onto SSE. The check-in
// desk runs a single front-end, so the shared channel is not fanned out.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.svc.WatchEvents()
	if events == nil {
		http.Error(w, "watcher not configured", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("failed to marshal event", map[string]interface{}{"error": err.Error()})
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
