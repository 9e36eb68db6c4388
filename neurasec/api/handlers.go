package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/feedback"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/reputation"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/store"
)

// maxBodyBytes bounds request bodies; scan and feedback payloads are tiny.
const maxBodyBytes = 64 * 1024

// Scanner runs one scan request. Implemented by scan.Service.
type Scanner interface {
	Scan(ctx context.Context, inputURL string) (neurasec.ScanResult, error)
}

// FeedbackRecorder stores community feedback. Implemented by
// feedback.Aggregator.
type FeedbackRecorder interface {
	Record(ctx context.Context, sub feedback.Submission) error
}

// SnapshotCalculator produces scan cache summaries. Implemented by
// snapshot.Calculator.
type SnapshotCalculator interface {
	CalculateSnapshot(ctx context.Context, snapshotID string) (*store.ScanSnapshot, error)
}

// Handlers carries the dependencies of the scan API endpoints.
type Handlers struct {
	scanner  Scanner
	feedback FeedbackRecorder
	stats    SnapshotCalculator
}

// NewHandlers creates the scan API handler set.
func NewHandlers(scanner Scanner, fb FeedbackRecorder, stats SnapshotCalculator) *Handlers {
	return &Handlers{scanner: scanner, feedback: fb, stats: stats}
}

// ScanRequest is the inbound contract of the scan endpoint.
type ScanRequest struct {
	URL string `json:"url"`
}

// FeedbackRequest is the inbound contract of the feedback endpoint.
type FeedbackRequest struct {
	URL             string `json:"url"`
	OriginalVerdict string `json:"originalVerdict"`
	UserVerdict     string `json:"userVerdict"`
	UserComment     string `json:"userComment,omitempty"`
}

// ScanHandler handles POST /api/v1/scan.
func (h *Handlers) ScanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	result, err := h.scanner.Scan(r.Context(), req.URL)
	if err != nil {
		writeScanError(w, r, req.URL, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeScanError maps pipeline failures to HTTP responses. Vendor rejections
// surface the vendor's status code; everything else is a redacted 500.
func writeScanError(w http.ResponseWriter, r *http.Request, url string, err error) {
	var submissionErr *reputation.SubmissionError
	if errors.As(err, &submissionErr) {
		writeError(w, submissionErr.StatusCode, "VirusTotal submission failed: "+submissionErr.Message)
		return
	}
	var httpErr *reputation.HTTPError
	if errors.As(err, &httpErr) {
		writeError(w, httpErr.StatusCode, "VirusTotal analysis report fetch failed: "+httpErr.Message)
		return
	}
	if errors.Is(err, context.Canceled) || r.Context().Err() != nil {
		// Client went away; nothing useful to write.
		return
	}
	slog.Error("Scan failed unexpectedly", "url", url, "error", err)
	writeError(w, http.StatusInternalServerError, "Failed to scan URL")
}

// FeedbackHandler handles POST /api/v1/scan/feedback.
func (h *Handlers) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if !neurasec.ValidUserVerdict(req.UserVerdict) {
		writeError(w, http.StatusBadRequest, "userVerdict must be one of Safe, Suspicious, Malicious")
		return
	}

	sub := feedback.Submission{
		URL:             req.URL,
		OriginalVerdict: req.OriginalVerdict,
		UserVerdict:     req.UserVerdict,
		UserComment:     req.UserComment,
		UserIP:          clientIP(r),
	}
	if err := h.feedback.Record(r.Context(), sub); err != nil {
		slog.Error("Failed to record feedback", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// StatsHandler handles GET /api/v1/scan/stats.
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.stats == nil {
		writeError(w, http.StatusNotFound, "Stats are not enabled")
		return
	}

	snap, err := h.stats.CalculateSnapshot(r.Context(), "")
	if err != nil {
		slog.Error("Failed to calculate snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to calculate stats")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// clientIP extracts the advisory submitter address; X-Forwarded-For wins
// over the socket peer when a proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
