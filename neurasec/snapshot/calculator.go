// Package snapshot reduces the scan cache to point-in-time verdict counts
// for the stats surface, stored in valkey.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres/models"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/store"
)

// Calculator builds scan snapshots from the relational cache.
type Calculator struct {
	db      *postgres.DB
	kvStore store.KVStore
	now     func() time.Time
}

// NewCalculator creates a Calculator. kvStore may be nil when snapshots are
// only computed on demand, never saved.
func NewCalculator(db *postgres.DB, kvStore store.KVStore) *Calculator {
	return &Calculator{db: db, kvStore: kvStore, now: time.Now}
}

// CalculateSnapshot queries the cache and feedback tables and generates a
// snapshot. snapshotID can be empty (a timestamp-based id is generated) or a
// specific id.
func (c *Calculator) CalculateSnapshot(ctx context.Context, snapshotID string) (*store.ScanSnapshot, error) {
	startTime := time.Now()
	now := c.now().UTC()

	if snapshotID == "" {
		// Format: YYYY-MM-DD-HHMMSS (e.g. 2025-11-03-143025)
		snapshotID = now.Format("2006-01-02-150405")
	}

	snapshot := &store.ScanSnapshot{
		SnapshotID: snapshotID,
		Timestamp:  now,
	}

	g := c.db.Gorm().WithContext(ctx)

	err := g.Model(&models.ScanCache{}).
		Select(`
			COUNT(*) as total,
			SUM(CASE WHEN verdict = 'Malicious' THEN 1 ELSE 0 END) as malicious,
			SUM(CASE WHEN verdict = 'Suspicious' THEN 1 ELSE 0 END) as suspicious,
			SUM(CASE WHEN verdict = 'Safe' THEN 1 ELSE 0 END) as safe
		`).
		Scan(&snapshot.Counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to calculate verdict counts: %w", err)
	}

	var fresh, expired int64
	if err := g.Model(&models.ScanCache{}).Where("expires_at > ?", now).Count(&fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to count fresh entries: %w", err)
	}
	if err := g.Model(&models.ScanCache{}).Where("expires_at <= ?", now).Count(&expired).Error; err != nil {
		return nil, fmt.Errorf("failed to count expired entries: %w", err)
	}

	var totalFeedbacks int64
	err = g.Model(&models.ScanFeedback{}).
		Select("COALESCE(SUM(feedback_count), 0)").
		Scan(&totalFeedbacks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum feedbacks: %w", err)
	}

	snapshot.Metadata = store.SnapshotMetadata{
		FreshEntries:       int(fresh),
		ExpiredEntries:     int(expired),
		TotalFeedbacks:     totalFeedbacks,
		SnapshotDurationMs: time.Since(startTime).Milliseconds(),
	}

	return snapshot, nil
}

// SaveSnapshot stores the snapshot in valkey.
func (c *Calculator) SaveSnapshot(ctx context.Context, snapshot *store.ScanSnapshot) error {
	if c.kvStore == nil {
		return fmt.Errorf("no kv store configured")
	}
	key := fmt.Sprintf("scan:snapshot:%s", snapshot.SnapshotID)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return c.kvStore.SetValue(ctx, key, string(data))
}
