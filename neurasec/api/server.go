// Package api exposes the scan pipeline over HTTP. Handled conditions
// (invalid input, local URLs, provisional vendor results) return 200 with a
// ScanResult body; 500 is reserved for unexpected internal faults and always
// carries a redacted message.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec/feedback"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/scan"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/snapshot"
)

// Server provides the scan HTTP API.
type Server struct {
	server *http.Server
	mux    *http.ServeMux
}

// NewServer creates the scan API server and registers all routes.
func NewServer(addr string, scanner *scan.Service, fb *feedback.Aggregator, stats *snapshot.Calculator) *Server {
	mux := http.NewServeMux()

	// A typed nil must not reach the interface field, or the handler's
	// nil check would pass it through.
	var calc SnapshotCalculator
	if stats != nil {
		calc = stats
	}
	h := NewHandlers(scanner, fb, calc)
	SetupScanRoutes(mux, h)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy","service":"scan-api"}`)); err != nil {
			slog.Error("Failed to write health response", "error", err)
		}
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{server: server, mux: mux}
}

// SetupScanRoutes registers the scan API routes on the given mux.
func SetupScanRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("/api/v1/scan", h.ScanHandler)
	mux.HandleFunc("/api/v1/scan/feedback", h.FeedbackHandler)
	mux.HandleFunc("/api/v1/scan/stats", h.StatsHandler)
}

// Start starts the scan API server.
func (s *Server) Start() error {
	slog.Info("Starting scan API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the scan API server.
func (s *Server) Stop() error {
	slog.Info("Stopping scan API server")
	return s.server.Close()
}

// GetMux returns the HTTP mux for custom route additions.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}
