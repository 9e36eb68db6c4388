package reputation

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
)

// Phase identifies where a scan request sits in the vendor protocol.
type Phase int

const (
	PhaseSubmitted Phase = iota
	PhaseAwaitingPrimary
	PhaseFallback
	PhaseProvisionalUnknown
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitted:
		return "submitted"
	case PhaseAwaitingPrimary:
		return "awaiting-primary"
	case PhaseFallback:
		return "fallback"
	case PhaseProvisionalUnknown:
		return "provisional-unknown"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the tagged union the vendor protocol steps through for one scan.
// Transition methods are pure: given the same inputs they produce the same
// next state, so each step is unit-testable without live network calls.
//
//	Submitted -> AwaitingPrimary -> Completed
//	                             -> Fallback -> Completed
//	                                         -> ProvisionalUnknown
//	                                         -> Failed
//	                             -> Failed
type State struct {
	Phase          Phase
	URL            string
	AnalysisID     string
	FallbackReason string
	Result         *neurasec.ScanResult
	Err            error
}

// NewSubmitted is the initial state for a scan of url.
func NewSubmitted(url string) State {
	return State{Phase: PhaseSubmitted, URL: url}
}

// AfterSubmit consumes the submission outcome. A rejected or malformed
// submission is fatal for the request.
func (s State) AfterSubmit(analysisID string, err error) State {
	if err != nil {
		s.Phase = PhaseFailed
		s.Err = err
		return s
	}
	s.Phase = PhaseAwaitingPrimary
	s.AnalysisID = analysisID
	return s
}

// EvalPrimary consumes the primary (analysis-by-id) fetch outcome. Only
// "not ready yet" signals transition to the fallback: a queued/incomplete
// status, a malformed body, or a 404. Any other error terminates the scan.
func (s State) EvalPrimary(attrs *Attributes, err error) State {
	switch {
	case errors.Is(err, ErrNotFound):
		s.Phase = PhaseFallback
		s.FallbackReason = fmt.Sprintf("Initial analysis report %s not found (404).", s.AnalysisID)
	case errors.Is(err, ErrMalformed):
		s.Phase = PhaseFallback
		s.FallbackReason = "Initial analysis response format unexpected."
	case err != nil:
		s.Phase = PhaseFailed
		s.Err = err
	case attrs.Status == "completed":
		s.Phase = PhaseCompleted
		result := Reduce(s.URL, attrs, s.AnalysisID)
		s.Result = &result
	default:
		s.Phase = PhaseFallback
		s.FallbackReason = fmt.Sprintf("Initial analysis status was '%s'.", attrs.Status)
	}
	return s
}

// EvalFallback consumes the fallback (URL-report) fetch outcome. A 404 here
// means the vendor does not know the URL at all; the scan resolves to a
// provisional Safe result that must not be cached. Other errors resolve to a
// handled Error-verdict result advising a later retry.
func (s State) EvalFallback(attrs *Attributes, urlIdentifier string, now time.Time, err error) State {
	switch {
	case errors.Is(err, ErrNotFound):
		s.Phase = PhaseProvisionalUnknown
		result := provisionalResult(s.URL, now)
		s.Result = &result
	case errors.Is(err, ErrMalformed):
		s.Phase = PhaseFailed
		s.Err = err
		result := errorResult(s.URL, "Failed to process VirusTotal fallback report (unexpected format).")
		s.Result = &result
	case err != nil:
		s.Phase = PhaseFailed
		s.Err = err
		result := errorResult(s.URL, "We were unable to retrieve analysis for this URL. It may be new to VirusTotal's database. Try scanning again in a few minutes.")
		s.Result = &result
	default:
		s.Phase = PhaseCompleted
		result := Reduce(s.URL, attrs, urlIdentifier)
		s.Result = &result
	}
	return s
}

// provisionalResult is the best-effort verdict for a URL the vendor has never
// seen: Safe with score 0, explicitly marked as still being analyzed.
func provisionalResult(url string, now time.Time) neurasec.ScanResult {
	return neurasec.ScanResult{
		URL:         url,
		Verdict:     neurasec.VerdictSafe,
		Score:       0,
		Explanation: "This URL is new to VirusTotal and is currently being analyzed. Results will be more detailed on future scans.",
		Details: []neurasec.Detail{
			{
				Category:    "Analysis Status",
				Status:      neurasec.DetailWarning,
				Description: "URL has been submitted to VirusTotal and is awaiting full analysis.",
			},
			{
				Category:    "Scan Status",
				Status:      neurasec.DetailOK,
				Description: "No security threats have been detected so far.",
			},
		},
		LastAnalysisDate: now.UTC().Format(time.RFC3339),
		TimesSubmitted:   1,
	}
}

func errorResult(url, explanation string) neurasec.ScanResult {
	return neurasec.ScanResult{
		URL:         url,
		Verdict:     neurasec.VerdictError,
		Score:       0,
		Explanation: explanation,
	}
}
