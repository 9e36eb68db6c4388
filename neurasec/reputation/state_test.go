package reputation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
)

func TestStateSubmitSuccess(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("u-abc-123", nil)

	if st.Phase != PhaseAwaitingPrimary {
		t.Fatalf("expected awaiting-primary, got %s", st.Phase)
	}
	if st.AnalysisID != "u-abc-123" {
		t.Errorf("expected analysis id recorded, got %q", st.AnalysisID)
	}
}

func TestStateSubmitRejected(t *testing.T) {
	subErr := &SubmissionError{StatusCode: 429, Message: "quota exceeded"}
	st := NewSubmitted("https://example.com").AfterSubmit("", subErr)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected failed, got %s", st.Phase)
	}
	var got *SubmissionError
	if !errors.As(st.Err, &got) || got.StatusCode != 429 {
		t.Errorf("expected submission error carried through, got %v", st.Err)
	}
}

func TestStatePrimaryCompleted(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(&Attributes{Status: "completed", Stats: &Stats{Harmless: 5}}, nil)

	if st.Phase != PhaseCompleted {
		t.Fatalf("expected completed, got %s", st.Phase)
	}
	if st.Result == nil || st.Result.Verdict != neurasec.VerdictSafe {
		t.Errorf("expected a reduced Safe result, got %+v", st.Result)
	}
}

func TestStatePrimaryQueuedGoesToFallback(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(&Attributes{Status: "queued"}, nil)

	if st.Phase != PhaseFallback {
		t.Fatalf("expected fallback, got %s", st.Phase)
	}
	if !strings.Contains(st.FallbackReason, "queued") {
		t.Errorf("fallback reason should cite the status, got %q", st.FallbackReason)
	}
}

func TestStatePrimaryNotFoundGoesToFallback(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(nil, ErrNotFound)

	if st.Phase != PhaseFallback {
		t.Fatalf("expected fallback on 404, got %s", st.Phase)
	}
}

func TestStatePrimaryMalformedGoesToFallback(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(nil, ErrMalformed)

	if st.Phase != PhaseFallback {
		t.Fatalf("expected fallback on malformed body, got %s", st.Phase)
	}
}

func TestStatePrimaryHTTPErrorIsFatal(t *testing.T) {
	httpErr := &HTTPError{StatusCode: 500, Message: "internal"}
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(nil, httpErr)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected failed on server error, got %s", st.Phase)
	}
	var got *HTTPError
	if !errors.As(st.Err, &got) || got.StatusCode != 500 {
		t.Errorf("expected HTTP error carried through, got %v", st.Err)
	}
}

func TestStateFallbackNotFoundIsProvisional(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	st := NewSubmitted("https://brand-new.example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(nil, ErrNotFound)
	st = st.EvalFallback(nil, "sha", now, ErrNotFound)

	if st.Phase != PhaseProvisionalUnknown {
		t.Fatalf("expected provisional-unknown, got %s", st.Phase)
	}
	r := st.Result
	if r == nil {
		t.Fatal("expected a provisional result")
	}
	if r.Verdict != neurasec.VerdictSafe || r.Score != 0 {
		t.Errorf("provisional result should be Safe with zero score, got %q/%v", r.Verdict, r.Score)
	}
	if r.TimesSubmitted != 1 {
		t.Errorf("expected times submitted 1, got %d", r.TimesSubmitted)
	}
	if r.LastAnalysisDate != "2026-08-31T12:00:00Z" {
		t.Errorf("expected the supplied timestamp, got %q", r.LastAnalysisDate)
	}
}

func TestStateFallbackMalformed(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(nil, ErrMalformed)
	st = st.EvalFallback(nil, "sha", time.Now(), ErrMalformed)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected failed, got %s", st.Phase)
	}
	if st.Result == nil || st.Result.Verdict != neurasec.VerdictError {
		t.Errorf("expected a handled Error-verdict result, got %+v", st.Result)
	}
}

func TestStateFallbackGenericError(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(nil, ErrNotFound)
	st = st.EvalFallback(nil, "sha", time.Now(), &HTTPError{StatusCode: 503, Message: "unavailable"})

	if st.Phase != PhaseFailed {
		t.Fatalf("expected failed, got %s", st.Phase)
	}
	if st.Result == nil || !strings.Contains(st.Result.Explanation, "Try scanning again") {
		t.Errorf("expected a retry-later explanation, got %+v", st.Result)
	}
}

func TestStateFallbackCompleted(t *testing.T) {
	st := NewSubmitted("https://example.com").AfterSubmit("id", nil)
	st = st.EvalPrimary(&Attributes{Status: "queued"}, nil)
	attrs := &Attributes{
		LastAnalysisStats: &Stats{Malicious: 3, Harmless: 7},
		LastAnalysisDate:  1700000000,
	}
	st = st.EvalFallback(attrs, "sha256hex", time.Now(), nil)

	if st.Phase != PhaseCompleted {
		t.Fatalf("expected completed, got %s", st.Phase)
	}
	if st.Result == nil || st.Result.Verdict != neurasec.VerdictMalicious {
		t.Errorf("expected a reduced Malicious result, got %+v", st.Result)
	}
	if st.Result.AnalysisID != "sha256hex" {
		t.Errorf("expected the URL identifier as the report link id, got %q", st.Result.AnalysisID)
	}
}
