// Package cache persists scan results with a freshness window. Caching is a
// best-effort optimization: every storage error degrades to a cache miss (or
// a skipped write) and is logged, never propagated to the scan pipeline.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres/models"
)

// DefaultFreshnessWindow is how long a cached result stays trusted.
const DefaultFreshnessWindow = 6 * time.Hour

// Repository owns all reads and writes of the url_scan_cache table.
type Repository struct {
	db     *postgres.DB
	window time.Duration
	now    func() time.Time
}

// NewRepository creates a cache repository with the given freshness window.
// A non-positive window falls back to DefaultFreshnessWindow.
func NewRepository(db *postgres.DB, window time.Duration) *Repository {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Repository{db: db, window: window, now: time.Now}
}

// Get looks up a fresh cached result by exact canonical URL. It returns
// (nil, false) on miss, on expiry, and on any storage error.
func (r *Repository) Get(ctx context.Context, url string) (*neurasec.ScanResult, bool) {
	var row models.ScanCache
	err := r.db.Gorm().WithContext(ctx).
		Where("url = ? AND expires_at > ?", url, r.now()).
		First(&row).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			slog.Warn("Cache lookup failed, treating as miss", "url", url, "error", err)
		}
		return nil, false
	}

	result := toResult(row)
	result.FromCache = true
	return &result, true
}

// Put upserts the result keyed by URL and stamps a fresh expiry. Error
// verdicts are never persisted; the write is skipped entirely.
func (r *Repository) Put(ctx context.Context, result neurasec.ScanResult) {
	if result.Verdict == neurasec.VerdictError {
		slog.Debug("Skipping cache write for Error verdict", "url", result.URL)
		return
	}

	row, err := toRow(result, r.now(), r.window)
	if err != nil {
		slog.Warn("Cache write skipped, could not encode result", "url", result.URL, "error", err)
		return
	}

	err = r.db.Gorm().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		slog.Warn("Cache write failed", "url", result.URL, "error", err)
		return
	}
	slog.Debug("Cached scan result", "url", result.URL, "expires_at", row.ExpiresAt)
}

func toRow(result neurasec.ScanResult, now time.Time, window time.Duration) (models.ScanCache, error) {
	details, err := json.Marshal(result.Details)
	if err != nil {
		return models.ScanCache{}, err
	}
	vendorResults, err := json.Marshal(result.VendorResults)
	if err != nil {
		return models.ScanCache{}, err
	}
	categories, err := json.Marshal(result.Categories)
	if err != nil {
		return models.ScanCache{}, err
	}

	var lastAnalysis *time.Time
	if result.LastAnalysisDate != "" {
		if t, err := time.Parse(time.RFC3339, result.LastAnalysisDate); err == nil {
			lastAnalysis = &t
		}
	}

	return models.ScanCache{
		URL:              result.URL,
		Verdict:          string(result.Verdict),
		Score:            result.Score,
		Explanation:      result.Explanation,
		Details:          string(details),
		VendorResults:    string(vendorResults),
		AnalysisID:       result.AnalysisID,
		Categories:       string(categories),
		Reputation:       result.Reputation,
		LastAnalysisDate: lastAnalysis,
		TimesSubmitted:   result.TimesSubmitted,
		FetchedAt:        now,
		ExpiresAt:        now.Add(window),
	}, nil
}

func toResult(row models.ScanCache) neurasec.ScanResult {
	result := neurasec.ScanResult{
		URL:            row.URL,
		Verdict:        neurasec.Verdict(row.Verdict),
		Score:          row.Score,
		Explanation:    row.Explanation,
		AnalysisID:     row.AnalysisID,
		Reputation:     row.Reputation,
		TimesSubmitted: row.TimesSubmitted,
	}
	if row.Details != "" {
		if err := json.Unmarshal([]byte(row.Details), &result.Details); err != nil {
			slog.Warn("Cached details column is unreadable", "url", row.URL, "error", err)
		}
	}
	if row.VendorResults != "" {
		if err := json.Unmarshal([]byte(row.VendorResults), &result.VendorResults); err != nil {
			slog.Warn("Cached vendor_results column is unreadable", "url", row.URL, "error", err)
		}
	}
	if row.Categories != "" {
		if err := json.Unmarshal([]byte(row.Categories), &result.Categories); err != nil {
			slog.Warn("Cached categories column is unreadable", "url", row.URL, "error", err)
		}
	}
	if row.LastAnalysisDate != nil {
		result.LastAnalysisDate = row.LastAnalysisDate.UTC().Format(time.RFC3339)
	}
	return result
}
