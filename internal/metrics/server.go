package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/engine"
	"firestige.xyz/peeracct/internal/peerstats"
)

// Server is the HTTP server for Prometheus metrics and the read/write API.
type Server struct {
	addr     string
	path     string
	engine   *engine.Engine
	gatherer prometheus.Gatherer
	router   *mux.Router
	server   *http.Server
}

// NewServer creates a new metrics server. A nil gatherer means the default
// registry.
func NewServer(addr, path string, eng *engine.Engine, gatherer prometheus.Gatherer) *Server {
	if path == "" {
		path = "/metrics"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		addr:     addr,
		path:     path,
		engine:   eng,
		gatherer: gatherer,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Handle(s.path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/peers", s.handlePeers).Methods(http.MethodGet)
	api.HandleFunc("/peers/{addr}", s.handlePeer).Methods(http.MethodGet)
	api.HandleFunc("/peers/{addr}", s.handleDeletePeer).Methods(http.MethodDelete)
	api.HandleFunc("/ports", s.handlePorts).Methods(http.MethodGet)
	api.HandleFunc("/ports/{class}", s.handleSetPort).Methods(http.MethodPut)
	api.HandleFunc("/diag", s.handleDiag).Methods(http.MethodGet)
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the metrics HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting metrics server", "addr", s.addr, "path", s.path)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	slog.Info("stopping metrics server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	slog.Info("metrics server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	family := r.URL.Query().Get("family")
	if family != "" && family != "ipv4" && family != "ipv6" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown family %q", family))
		return
	}
	records := s.engine.Store().Snapshot()
	if family != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Family() == family {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePeer(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddr(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ErrInvalidAddress)
		return
	}
	addr = addr.Unmap()
	counters, ok := s.engine.Store().Lookup(addr)
	if !ok {
		writeError(w, http.StatusNotFound, core.ErrPeerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, peerstats.PeerRecord{Peer: addr, Counters: counters})
}

func (s *Server) handleDeletePeer(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddr(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, core.ErrInvalidAddress)
		return
	}
	if err := s.engine.Store().Delete(addr.Unmap()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePorts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Ports().Snapshot())
}

type setPortRequest struct {
	Port uint16 `json:"port"`
}

func (s *Server) handleSetPort(w http.ResponseWriter, r *http.Request) {
	class, err := core.ParseClass(mux.Vars(r)["class"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req setPortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := s.engine.Ports().Set(class, req.Port); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	slog.Info("port updated via http", "class", class.String(), "port", req.Port)
	writeJSON(w, http.StatusOK, s.engine.Ports().Snapshot())
}

func (s *Server) handleDiag(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Diag      any `json:"diag"`
		Occupancy any `json:"occupancy"`
	}{s.engine.Diag().Snapshot(), s.engine.Store().Occupancy()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrPeerNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAddress), errors.Is(err, core.ErrUnknownClass):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
