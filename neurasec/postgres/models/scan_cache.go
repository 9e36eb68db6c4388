package models

import "time"

// ScanCache is one cached scan result, keyed by the canonical URL. Rows are
// upserted on every successful non-Error scan and never deleted; lookups
// simply ignore rows whose expiry has passed.
type ScanCache struct {
	URL              string     `gorm:"primaryKey" json:"url"`
	Verdict          string     `gorm:"not null" json:"verdict"`
	Score            float64    `gorm:"not null" json:"score"`
	Explanation      string     `json:"explanation"`
	Details          string     `gorm:"type:jsonb" json:"details"`
	VendorResults    string     `gorm:"type:jsonb" json:"vendor_results"`
	AnalysisID       string     `json:"analysis_id"`
	Categories       string     `gorm:"type:jsonb" json:"categories"`
	Reputation       int        `json:"reputation"`
	LastAnalysisDate *time.Time `json:"last_analysis_date"`
	TimesSubmitted   int        `json:"times_submitted"`
	FetchedAt        time.Time  `gorm:"not null" json:"fetched_at"`
	ExpiresAt        time.Time  `gorm:"not null;index:idx_url_scan_cache_expires_at" json:"expires_at"`
}

func (ScanCache) TableName() string {
	return "url_scan_cache"
}
