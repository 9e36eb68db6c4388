// Package scan is the entry point of the URL threat-assessment pipeline. It
// normalizes and validates the submitted URL, short-circuits local addresses,
// consults the result cache, drives the vendor aggregator on a miss, merges
// lexical homograph findings and community feedback, and persists the final
// result best-effort.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/cache"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/feedback"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/homograph"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/queue"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/reputation"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/store"
)

// Analyzer runs the vendor protocol for one URL. Implemented by
// reputation.Aggregator; tests substitute a fake.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (reputation.Outcome, error)
}

// EventPublisher fans out completed scans. Implemented by queue.Publisher.
type EventPublisher interface {
	PublishScanEvent(event queue.ScanEvent) error
}

// Service orchestrates one scan request end to end. Each request is handled
// independently; the only shared state is the injected repositories' pooled
// connection handles.
type Service struct {
	cache    *cache.Repository
	analyzer Analyzer
	feedback *feedback.Aggregator
	trusted  []string

	// Optional best-effort integrations; nil disables them.
	kv     store.KVStore
	events EventPublisher

	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithTrustedDomains overrides the default trusted-domain list used for
// homograph similarity checks.
func WithTrustedDomains(domains []string) Option {
	return func(s *Service) { s.trusted = domains }
}

// WithKVStore enables latest-scan status publishing.
func WithKVStore(kv store.KVStore) Option {
	return func(s *Service) { s.kv = kv }
}

// WithEventPublisher enables scan-completed event publishing.
func WithEventPublisher(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// NewService wires the orchestrator.
func NewService(c *cache.Repository, analyzer Analyzer, f *feedback.Aggregator, opts ...Option) *Service {
	s := &Service{
		cache:    c,
		analyzer: analyzer,
		feedback: f,
		trusted:  homograph.TrustedDomains,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan assesses one user-submitted URL.
//
// Handled conditions (malformed input, local addresses, provisional "new to
// vendor" results, fallback failures) come back as a ScanResult with a nil
// error. A non-nil error means the request itself failed: vendor submission
// rejected, a generic vendor HTTP failure, or cancellation.
func (s *Service) Scan(ctx context.Context, inputURL string) (neurasec.ScanResult, error) {
	canonical, host, ok := normalizeURL(inputURL)
	if !ok {
		return invalidURLResult(inputURL), nil
	}

	if isLocalHost(host) {
		slog.Info("Local development URL detected, returning safe verdict without scanning", "url", canonical)
		return localhostResult(canonical), nil
	}

	if cached, hit := s.cache.Get(ctx, canonical); hit {
		slog.Debug("Cache hit", "url", canonical)
		s.notify(ctx, *cached)
		return *cached, nil
	}

	finding := homograph.Detect(host, s.trusted)

	outcome, err := s.analyzer.Analyze(ctx, canonical)
	if err != nil {
		return neurasec.ScanResult{}, fmt.Errorf("analyze %s: %w", canonical, err)
	}
	result := outcome.Result
	result.FromCache = false

	mergeHomograph(&result, finding)

	// A cancelled request must not leave partial data behind.
	if ctx.Err() != nil {
		return neurasec.ScanResult{}, ctx.Err()
	}

	// Provisional results reflect an incomplete vendor view and are never
	// cached; Error verdicts are skipped inside Put.
	if !outcome.Provisional {
		s.cache.Put(ctx, result)
	}

	s.attachFeedback(ctx, &result)
	s.notify(ctx, result)
	return result, nil
}

// attachFeedback merges the community signal into the result. A disagreeing
// majority of at least feedback.MajorityThreshold annotates the explanation;
// it never overwrites the automated verdict.
func (s *Service) attachFeedback(ctx context.Context, result *neurasec.ScanResult) {
	fb := s.feedback.Aggregate(ctx, result.URL)
	result.CommunityFeedback = &fb
	if !fb.HasFeedback {
		return
	}
	if fb.MajorityVerdict != string(result.Verdict) && fb.TotalFeedbacks >= feedback.MajorityThreshold {
		result.Explanation += fmt.Sprintf(" Note: Community users (%d) have suggested this URL is %q instead.",
			fb.TotalFeedbacks, fb.MajorityVerdict)
	}
}

// notify publishes the latest-scan status and a scan event. Both are
// best-effort side channels.
func (s *Service) notify(ctx context.Context, result neurasec.ScanResult) {
	if result.Verdict == neurasec.VerdictError {
		return
	}
	scannedAt := s.now().UTC()

	if s.kv != nil {
		latest := store.LatestScan{
			URL:       result.URL,
			Verdict:   string(result.Verdict),
			Score:     result.Score,
			FromCache: result.FromCache,
			ScannedAt: scannedAt,
		}
		if err := setLatestScan(ctx, s.kv, latest); err != nil {
			slog.Warn("Failed to publish latest-scan status", "url", result.URL, "error", err)
		}
	}

	if s.events != nil {
		event := queue.ScanEvent{
			URL:       result.URL,
			Verdict:   string(result.Verdict),
			Score:     result.Score,
			FromCache: result.FromCache,
			ScannedAt: scannedAt,
		}
		if err := s.events.PublishScanEvent(event); err != nil {
			slog.Warn("Failed to publish scan event", "url", result.URL, "error", err)
		}
	}
}

// normalizeURL canonicalizes the input: https scheme when none is given,
// parsed and re-rendered. ok is false when no usable hostname remains.
func normalizeURL(input string) (canonical, host string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", "", false
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Hostname() == "" {
		return "", "", false
	}
	return u.String(), strings.ToLower(u.Hostname()), true
}

// isLocalHost reports whether the host is local-only: localhost, a loopback
// address, or a reserved local development suffix.
func isLocalHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	for _, suffix := range []string{".local", ".test", ".localhost"} {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func mergeHomograph(result *neurasec.ScanResult, finding neurasec.HomographFinding) {
	if !finding.IsPotentialHomograph {
		return
	}
	for _, reason := range finding.Reasons {
		result.Details = append(result.Details, neurasec.Detail{
			Category:    "Homograph Analysis",
			Status:      neurasec.DetailWarning,
			Description: reason,
		})
	}
	note := " Warning: the domain shows signs of a possible homograph (lookalike) attack."
	if finding.SimilarTo != "" {
		note = fmt.Sprintf(" Warning: the domain closely resembles the trusted domain %s.", finding.SimilarTo)
	}
	result.Explanation += note
}

func invalidURLResult(inputURL string) neurasec.ScanResult {
	return neurasec.ScanResult{
		URL:         inputURL,
		Verdict:     neurasec.VerdictError,
		Score:       0,
		Explanation: "The URL you entered could not be processed. Make sure it's a valid URL with a proper domain name.",
	}
}

func localhostResult(canonical string) neurasec.ScanResult {
	return neurasec.ScanResult{
		URL:         canonical,
		Verdict:     neurasec.VerdictSafe,
		Score:       0,
		Explanation: "This is a localhost or local development URL, which is considered safe as it runs on your own machine.",
		Details: []neurasec.Detail{
			{
				Category:    "Local Development",
				Status:      neurasec.DetailOK,
				Description: "This is a local URL that only you can access.",
			},
		},
	}
}
