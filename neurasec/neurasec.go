// Package neurasec defines the shared value types of the URL
// threat-assessment pipeline. The central type is ScanResult, which every
// component (cache, vendor aggregator, feedback aggregator, orchestrator)
// produces or consumes.
package neurasec

// Verdict is the top-level classification of a URL.
type Verdict string

const (
	VerdictSafe       Verdict = "Safe"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictMalicious  Verdict = "Malicious"
	VerdictError      Verdict = "Error"
)

// ValidUserVerdict reports whether v is a verdict community users may submit.
// Error is internal and not accepted from the outside.
func ValidUserVerdict(v string) bool {
	switch Verdict(v) {
	case VerdictSafe, VerdictSuspicious, VerdictMalicious:
		return true
	}
	return false
}

// Detail statuses used in the per-category breakdown of a ScanResult.
const (
	DetailOK       = "ok"
	DetailWarning  = "warning"
	DetailCritical = "critical"
)

// Detail is one entry of the human-readable breakdown attached to a result.
type Detail struct {
	Category    string `json:"category"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// FeedbackStat is one aggregated group of community feedback for a URL.
type FeedbackStat struct {
	UserVerdict string `json:"user_verdict"`
	Count       int64  `json:"count"`
}

// CommunityFeedback summarizes crowd-sourced verdicts for a URL. The majority
// verdict never overrides the automated verdict; it only annotates it.
type CommunityFeedback struct {
	HasFeedback     bool           `json:"hasFeedback"`
	MajorityVerdict string         `json:"majorityVerdict,omitempty"`
	TotalFeedbacks  int64          `json:"totalFeedbacks,omitempty"`
	FeedbackStats   []FeedbackStat `json:"feedbackStats,omitempty"`
}

// ScanResult is the composed outcome of scanning one URL.
//
// Score is always within [0,1]: 0 means safe certainty, 1 means malicious
// certainty. A result with Verdict == VerdictError is never persisted to the
// cache. LastAnalysisDate is an RFC 3339 instant, empty when the vendor has
// never analyzed the URL.
type ScanResult struct {
	URL               string             `json:"url"`
	Verdict           Verdict            `json:"verdict"`
	Score             float64            `json:"score"`
	Explanation       string             `json:"explanation"`
	Details           []Detail           `json:"details,omitempty"`
	VendorResults     map[string]string  `json:"vendorResults,omitempty"`
	AnalysisID        string             `json:"analysisId,omitempty"`
	Categories        []string           `json:"categories,omitempty"`
	Reputation        int                `json:"reputation"`
	LastAnalysisDate  string             `json:"lastAnalysisDate,omitempty"`
	TimesSubmitted    int                `json:"timesSubmitted"`
	FromCache         bool               `json:"fromCache"`
	CommunityFeedback *CommunityFeedback `json:"communityFeedback,omitempty"`
}

// HomographFinding is the transient outcome of lexical analysis of a domain.
// It is merged into ScanResult details and never persisted on its own.
type HomographFinding struct {
	IsPotentialHomograph bool     `json:"isPotentialHomograph"`
	Reasons              []string `json:"reasons"`
	SimilarTo            string   `json:"similarTo,omitempty"`
}

// ClampScore bounds a risk score to [0,1].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
