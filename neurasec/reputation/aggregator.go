// Package reputation drives the external reputation vendor: submit a URL,
// wait out the asynchronous analysis, fetch the report, and reduce the raw
// vendor counts into a single verdict and score.
package reputation

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
)

// DefaultWait is the fixed post-submission delay that lets the asynchronous
// analysis progress. A deliberate latency/completeness trade-off, not a poll
// loop.
const DefaultWait = 3 * time.Second

// Outcome is a terminal scan outcome. Provisional results (vendor 404 on the
// fallback) are returned to the caller but must never be cached.
type Outcome struct {
	Result      neurasec.ScanResult
	Provisional bool
	Phase       Phase
}

// Aggregator runs the submit -> wait -> fetch -> fallback protocol.
type Aggregator struct {
	client ReportClient
	wait   time.Duration
}

// NewAggregator wires an aggregator to a vendor client. A non-positive wait
// falls back to DefaultWait.
func NewAggregator(client ReportClient, wait time.Duration) *Aggregator {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Aggregator{client: client, wait: wait}
}

// Analyze takes a canonical URL end-to-end through the vendor protocol.
//
// It returns an error only for the fatal paths: a rejected submission
// (*SubmissionError), a generic primary-fetch failure (*HTTPError), or
// context cancellation. Everything else resolves to a handled Outcome, which
// may carry an Error verdict (fallback failures) or a provisional Safe
// verdict (URL unknown to the vendor).
func (a *Aggregator) Analyze(ctx context.Context, url string) (Outcome, error) {
	st := NewSubmitted(url)

	id, err := a.client.SubmitURL(ctx, url)
	st = st.AfterSubmit(id, err)
	if st.Phase == PhaseFailed {
		return Outcome{Phase: st.Phase}, st.Err
	}
	slog.Debug("URL submitted to vendor", "url", url, "analysis_id", st.AnalysisID)

	// Bounded wait for the asynchronous analysis; aborts on cancellation.
	timer := time.NewTimer(a.wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return Outcome{Phase: PhaseFailed}, ctx.Err()
	case <-timer.C:
	}

	attrs, err := a.client.FetchAnalysis(ctx, st.AnalysisID)
	st = st.EvalPrimary(attrs, err)
	switch st.Phase {
	case PhaseCompleted:
		return Outcome{Result: *st.Result, Phase: st.Phase}, nil
	case PhaseFailed:
		return Outcome{Phase: st.Phase}, st.Err
	}

	slog.Warn("Falling back to general URL report", "url", url, "reason", st.FallbackReason)

	attrs, err = a.client.FetchURLReport(ctx, url)
	st = st.EvalFallback(attrs, URLIdentifier(url), time.Now(), err)
	switch st.Phase {
	case PhaseProvisionalUnknown:
		slog.Info("URL unknown to vendor, returning provisional verdict", "url", url)
		return Outcome{Result: *st.Result, Provisional: true, Phase: st.Phase}, nil
	case PhaseFailed:
		// ctx may have been cancelled mid-flight; surface that instead of a
		// handled error result so no partial data gets persisted.
		if ctx.Err() != nil {
			return Outcome{Phase: st.Phase}, ctx.Err()
		}
		slog.Warn("Fallback report fetch failed", "url", url, "error", st.Err)
		return Outcome{Result: *st.Result, Phase: st.Phase}, nil
	default:
		return Outcome{Result: *st.Result, Phase: st.Phase}, nil
	}
}
