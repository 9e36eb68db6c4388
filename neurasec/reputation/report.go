package reputation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
)

// Stats are the vendor detection counts of one analysis.
type Stats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
	Timeout    int `json:"timeout"`
}

// Total is the number of vendors that contributed a classification.
func (s Stats) Total() int {
	return s.Malicious + s.Suspicious + s.Harmless + s.Undetected
}

// VendorResult is one vendor's raw classification of the URL.
type VendorResult struct {
	Category   string `json:"category"`
	Result     string `json:"result"`
	Method     string `json:"method"`
	EngineName string `json:"engine_name"`
}

// Attributes is the vendor report payload. Analysis reports
// (GET /analyses/{id}) carry status plus stats/results; general URL reports
// (GET /urls/{sha256}) carry the last_analysis_* pair instead. The accessors
// below reconcile the two shapes.
type Attributes struct {
	Status              string                  `json:"status,omitempty"`
	Stats               *Stats                  `json:"stats,omitempty"`
	Results             map[string]VendorResult `json:"results,omitempty"`
	LastAnalysisStats   *Stats                  `json:"last_analysis_stats,omitempty"`
	LastAnalysisResults map[string]VendorResult `json:"last_analysis_results,omitempty"`
	Categories          map[string]string       `json:"categories,omitempty"`
	Reputation          int                     `json:"reputation,omitempty"`
	LastAnalysisDate    int64                   `json:"last_analysis_date,omitempty"`
	LastSubmissionDate  int64                   `json:"last_submission_date,omitempty"`
	TimesSubmitted      int                     `json:"times_submitted,omitempty"`
}

func (a *Attributes) stats() Stats {
	if a.LastAnalysisStats != nil {
		return *a.LastAnalysisStats
	}
	if a.Stats != nil {
		return *a.Stats
	}
	return Stats{}
}

func (a *Attributes) results() map[string]VendorResult {
	if len(a.LastAnalysisResults) > 0 {
		return a.LastAnalysisResults
	}
	return a.Results
}

// hasRecentData reports whether the vendor knows this URL at all: an analysis
// or submission timestamp, or any per-vendor result.
func (a *Attributes) hasRecentData() bool {
	return a.LastAnalysisDate != 0 || a.LastSubmissionDate != 0 || len(a.results()) > 0
}

// displayAnalysisID trims the composite id form ("u-<hash>-<ts>") down to the
// hash so callers can link to the vendor report.
func displayAnalysisID(id string) string {
	if strings.HasPrefix(id, "u-") {
		if parts := strings.Split(id, "-"); len(parts) >= 2 {
			return parts[1]
		}
	}
	return id
}

// Reduce collapses vendor report attributes into a single ScanResult: one
// verdict, a clamped [0,1] score, an explanation, and the side information
// carried through for display.
func Reduce(url string, attrs *Attributes, idForLink string) neurasec.ScanResult {
	stats := attrs.stats()
	total := stats.Total()

	var (
		verdict     neurasec.Verdict
		score       float64
		explanation string
	)

	switch {
	case total == 0 && !attrs.hasRecentData() && attrs.Status != "completed":
		verdict = neurasec.VerdictError
		explanation = "VirusTotal has no analysis data for this URL, or the analysis is still in progress."
	case stats.Malicious > 0:
		verdict = neurasec.VerdictMalicious
		if total > 0 {
			score = (float64(stats.Malicious) + float64(stats.Suspicious)*0.5) / float64(total)
		} else {
			score = 1.0
		}
		explanation = fmt.Sprintf("Detected as potentially malicious by %d out of %d security vendors.", stats.Malicious, total)
	case stats.Suspicious > 0:
		verdict = neurasec.VerdictSuspicious
		if total > 0 {
			score = float64(stats.Suspicious) * 0.5 / float64(total)
		} else {
			score = 0.5
		}
		explanation = fmt.Sprintf("Detected as potentially suspicious by %d out of %d security vendors. Exercise caution.", stats.Suspicious, total)
	case (stats.Harmless > 0 || stats.Undetected > 0) && total > 0:
		verdict = neurasec.VerdictSafe
		explanation = fmt.Sprintf("Considered safe by the majority (%d/%d) of security vendors.", stats.Harmless+stats.Undetected, total)
	case total == 0 && attrs.hasRecentData():
		verdict = neurasec.VerdictSafe
		explanation = "VirusTotal analysis did not find malicious or suspicious content (0 detections reported)."
	default:
		verdict = neurasec.VerdictSuspicious
		score = 0.1
		explanation = fmt.Sprintf("Analysis inconclusive (%d malicious, %d suspicious, %d harmless, %d undetected). Review full report.",
			stats.Malicious, stats.Suspicious, stats.Harmless, stats.Undetected)
	}
	score = neurasec.ClampScore(score)

	vendorResults := make(map[string]string, len(attrs.results()))
	for vendor, r := range attrs.results() {
		vendorResults[vendor] = r.Result
	}

	categories := make([]string, 0, len(attrs.Categories))
	for c := range attrs.Categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	totalLabel := "N/A"
	if total > 0 {
		totalLabel = fmt.Sprintf("%d", total)
	}
	details := []neurasec.Detail{
		{
			Category:    "Malicious Detections",
			Status:      detectionStatus(stats.Malicious, neurasec.DetailCritical),
			Description: fmt.Sprintf("%d/%s vendors flagged as malicious.", stats.Malicious, totalLabel),
		},
		{
			Category:    "Suspicious Detections",
			Status:      detectionStatus(stats.Suspicious, neurasec.DetailWarning),
			Description: fmt.Sprintf("%d/%s vendors flagged as suspicious.", stats.Suspicious, totalLabel),
		},
	}
	if len(categories) > 0 {
		details = append(details, neurasec.Detail{
			Category:    "URL Categories",
			Status:      neurasec.DetailOK,
			Description: "Categorized as: " + strings.Join(categories, ", "),
		})
	}
	reputationStatus := neurasec.DetailOK
	if attrs.Reputation < 0 {
		reputationStatus = neurasec.DetailWarning
	}
	details = append(details, neurasec.Detail{
		Category:    "URL Reputation",
		Status:      reputationStatus,
		Description: fmt.Sprintf("Reputation score: %d", attrs.Reputation),
	})

	var lastAnalysisDate string
	if attrs.LastAnalysisDate != 0 {
		lastAnalysisDate = time.Unix(attrs.LastAnalysisDate, 0).UTC().Format(time.RFC3339)
	}

	return neurasec.ScanResult{
		URL:              url,
		Verdict:          verdict,
		Score:            score,
		Explanation:      explanation,
		Details:          details,
		VendorResults:    vendorResults,
		AnalysisID:       displayAnalysisID(idForLink),
		Categories:       categories,
		Reputation:       attrs.Reputation,
		LastAnalysisDate: lastAnalysisDate,
		TimesSubmitted:   attrs.TimesSubmitted,
	}
}

func detectionStatus(count int, positive string) string {
	if count > 0 {
		return positive
	}
	return neurasec.DetailOK
}
