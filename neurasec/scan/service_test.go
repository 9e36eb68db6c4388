package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/cache"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/feedback"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres/models"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/queue"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/reputation"
)

// fakeAnalyzer scripts the vendor outcome and counts how often it runs.
type fakeAnalyzer struct {
	outcome reputation.Outcome
	err     error
	calls   int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, url string) (reputation.Outcome, error) {
	f.calls++
	if f.err != nil {
		return reputation.Outcome{}, f.err
	}
	out := f.outcome
	out.Result.URL = url
	return out, nil
}

type capturedEvents struct {
	events []queue.ScanEvent
}

func (c *capturedEvents) PublishScanEvent(event queue.ScanEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newTestService(t *testing.T, analyzer Analyzer, opts ...Option) (*Service, *postgres.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := postgres.NewWithDialector(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(cache.NewRepository(db, 6*time.Hour), analyzer, feedback.NewAggregator(db), opts...)
	return svc, db
}

func safeOutcome() reputation.Outcome {
	return reputation.Outcome{
		Result: neurasec.ScanResult{
			Verdict:     neurasec.VerdictSafe,
			Score:       0,
			Explanation: "Considered safe by the majority (10/10) of security vendors.",
		},
		Phase: reputation.PhaseCompleted,
	}
}

func TestScanInvalidURL(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, _ := newTestService(t, analyzer)

	result, err := svc.Scan(context.Background(), "http://")
	if err != nil {
		t.Fatalf("malformed input should be a handled result, got error %v", err)
	}
	if result.Verdict != neurasec.VerdictError {
		t.Errorf("expected Error verdict, got %q", result.Verdict)
	}
	if analyzer.calls != 0 {
		t.Errorf("analyzer should not run for malformed input, ran %d times", analyzer.calls)
	}
}

func TestScanLocalhostShortCircuits(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, db := newTestService(t, analyzer)

	result, err := svc.Scan(context.Background(), "http://127.0.0.1:3000")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Verdict != neurasec.VerdictSafe || result.Score != 0 {
		t.Errorf("expected Safe/0 for a loopback URL, got %q/%v", result.Verdict, result.Score)
	}
	if result.FromCache {
		t.Error("localhost results should not be marked as cached")
	}
	if analyzer.calls != 0 {
		t.Errorf("analyzer should not run for local URLs, ran %d times", analyzer.calls)
	}

	var count int64
	db.Gorm().Model(&models.ScanCache{}).Count(&count)
	if count != 0 {
		t.Errorf("localhost results should not be persisted, found %d rows", count)
	}
}

func TestScanPrependsHTTPS(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, _ := newTestService(t, analyzer)

	result, err := svc.Scan(context.Background(), "example.com/login")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.URL != "https://example.com/login" {
		t.Errorf("expected the canonical https URL, got %q", result.URL)
	}
}

func TestScanFreshThenCached(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, _ := newTestService(t, analyzer)
	ctx := context.Background()

	first, err := svc.Scan(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	if first.FromCache {
		t.Error("first scan should not come from the cache")
	}

	second, err := svc.Scan(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if !second.FromCache {
		t.Error("second scan should come from the cache")
	}
	if analyzer.calls != 1 {
		t.Errorf("expected exactly one vendor run, got %d", analyzer.calls)
	}
	if second.Verdict != first.Verdict || second.Score != first.Score {
		t.Errorf("cached result diverged: %q/%v vs %q/%v",
			second.Verdict, second.Score, first.Verdict, first.Score)
	}
}

func TestScanProvisionalNotCached(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: reputation.Outcome{
		Result: neurasec.ScanResult{
			Verdict:        neurasec.VerdictSafe,
			Explanation:    "This URL is new to VirusTotal and is currently being analyzed. Results will be more detailed on future scans.",
			TimesSubmitted: 1,
		},
		Provisional: true,
		Phase:       reputation.PhaseProvisionalUnknown,
	}}
	svc, db := newTestService(t, analyzer)
	ctx := context.Background()

	if _, err := svc.Scan(ctx, "https://brand-new.example.com"); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var count int64
	db.Gorm().Model(&models.ScanCache{}).Count(&count)
	if count != 0 {
		t.Errorf("provisional results must not be cached, found %d rows", count)
	}

	// A second scan re-runs the vendor protocol rather than hitting the cache.
	if _, err := svc.Scan(ctx, "https://brand-new.example.com"); err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if analyzer.calls != 2 {
		t.Errorf("expected the vendor to run again, got %d calls", analyzer.calls)
	}
}

func TestScanAnalyzerErrorPropagates(t *testing.T) {
	subErr := &reputation.SubmissionError{StatusCode: 429, Message: "quota"}
	analyzer := &fakeAnalyzer{err: subErr}
	svc, _ := newTestService(t, analyzer)

	_, err := svc.Scan(context.Background(), "https://example.com")
	var got *reputation.SubmissionError
	if !errors.As(err, &got) {
		t.Fatalf("expected the submission error surfaced, got %v", err)
	}
}

func TestScanHomographFindingsMerged(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, _ := newTestService(t, analyzer)

	// Cyrillic 'а' in place of the Latin letter.
	result, err := svc.Scan(context.Background(), "https://pаypal.com")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var sawHomographDetail bool
	for _, d := range result.Details {
		if d.Category == "Homograph Analysis" {
			sawHomographDetail = true
			if d.Status != neurasec.DetailWarning {
				t.Errorf("expected warning status, got %q", d.Status)
			}
		}
	}
	if !sawHomographDetail {
		t.Fatalf("expected homograph details merged into the result: %+v", result.Details)
	}
	if !strings.Contains(result.Explanation, "paypal.com") {
		t.Errorf("explanation should name the resembled trusted domain, got %q", result.Explanation)
	}
}

func TestScanHomographDetailsSurviveCaching(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, _ := newTestService(t, analyzer)
	ctx := context.Background()

	if _, err := svc.Scan(ctx, "https://pаypal.com"); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	cached, err := svc.Scan(ctx, "https://pаypal.com")
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if !cached.FromCache {
		t.Fatal("expected the second scan to hit the cache")
	}

	var sawHomographDetail bool
	for _, d := range cached.Details {
		if d.Category == "Homograph Analysis" {
			sawHomographDetail = true
		}
	}
	if !sawHomographDetail {
		t.Error("homograph findings should be part of the cached result")
	}
}

func TestScanCommunityFeedbackAnnotation(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, db := newTestService(t, analyzer)
	ctx := context.Background()

	url := "https://disputed.example.com"
	fb := feedback.NewAggregator(db)
	for i, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		err := fb.Record(ctx, feedback.Submission{URL: url, UserVerdict: "Malicious", UserIP: ip})
		if err != nil {
			t.Fatalf("Record #%d: %v", i+1, err)
		}
	}

	result, err := svc.Scan(ctx, url)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Verdict != neurasec.VerdictSafe {
		t.Errorf("community feedback must not overwrite the verdict, got %q", result.Verdict)
	}
	if result.CommunityFeedback == nil || result.CommunityFeedback.TotalFeedbacks != 3 {
		t.Fatalf("expected the aggregated feedback attached, got %+v", result.CommunityFeedback)
	}
	if !strings.Contains(result.Explanation, `Community users (3) have suggested this URL is "Malicious"`) {
		t.Errorf("expected the majority annotation, got %q", result.Explanation)
	}
}

func TestScanFeedbackBelowThresholdNoAnnotation(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	svc, db := newTestService(t, analyzer)
	ctx := context.Background()

	url := "https://mild-dispute.example.com"
	fb := feedback.NewAggregator(db)
	if err := fb.Record(ctx, feedback.Submission{URL: url, UserVerdict: "Malicious", UserIP: "10.0.0.1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	result, err := svc.Scan(ctx, url)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if strings.Contains(result.Explanation, "Community users") {
		t.Errorf("feedback below the threshold should not annotate, got %q", result.Explanation)
	}
	if result.CommunityFeedback == nil || !result.CommunityFeedback.HasFeedback {
		t.Error("the raw aggregate should still be attached")
	}
}

func TestScanPublishesEvent(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: safeOutcome()}
	events := &capturedEvents{}
	svc, _ := newTestService(t, analyzer, WithEventPublisher(events))

	if _, err := svc.Scan(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one scan event, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.URL != "https://example.com" || ev.Verdict != string(neurasec.VerdictSafe) {
		t.Errorf("unexpected event payload: %+v", ev)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in       string
		wantURL  string
		wantHost string
		wantOK   bool
	}{
		{"https://Example.COM/path", "https://Example.COM/path", "example.com", true},
		{"example.com", "https://example.com", "example.com", true},
		{"http://127.0.0.1:3000", "http://127.0.0.1:3000", "127.0.0.1", true},
		{"http://", "", "", false},
		{"   ", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		gotURL, gotHost, ok := normalizeURL(tc.in)
		if ok != tc.wantOK || gotURL != tc.wantURL || gotHost != tc.wantHost {
			t.Errorf("normalizeURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.in, gotURL, gotHost, ok, tc.wantURL, tc.wantHost, tc.wantOK)
		}
	}
}

func TestIsLocalHost(t *testing.T) {
	local := []string{"localhost", "127.0.0.1", "::1", "myapp.local", "staging.test", "dev.localhost"}
	for _, host := range local {
		if !isLocalHost(host) {
			t.Errorf("expected %q to be treated as local", host)
		}
	}
	remote := []string{"example.com", "192.168.1.10", "local.example.com"}
	for _, host := range remote {
		if isLocalHost(host) {
			t.Errorf("expected %q to be treated as remote", host)
		}
	}
}
