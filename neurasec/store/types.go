package store

import "time"

// VerdictCounts breaks down cached scan results by verdict. Error verdicts
// never reach the cache, so they have no bucket here.
type VerdictCounts struct {
	Total      int `json:"total"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Safe       int `json:"safe"`
}

// SnapshotMetadata carries bookkeeping about a snapshot run.
type SnapshotMetadata struct {
	FreshEntries       int   `json:"fresh_entries"`
	ExpiredEntries     int   `json:"expired_entries"`
	TotalFeedbacks     int64 `json:"total_feedbacks"`
	SnapshotDurationMs int64 `json:"snapshot_duration_ms"`
}

// ScanSnapshot is a point-in-time summary of the scan cache, stored in valkey
// under scan:snapshot:<id>.
type ScanSnapshot struct {
	SnapshotID string           `json:"snapshot_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Counts     VerdictCounts    `json:"counts"`
	Metadata   SnapshotMetadata `json:"metadata"`
}

// LatestScan is the most recent scan outcome, published best-effort for
// dashboards under scan:latest.
type LatestScan struct {
	URL       string    `json:"url"`
	Verdict   string    `json:"verdict"`
	Score     float64   `json:"score"`
	FromCache bool      `json:"from_cache"`
	ScannedAt time.Time `json:"scanned_at"`
}
