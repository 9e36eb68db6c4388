package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec/store"
)

const (
	latestScanKey = "scan:latest"
	// latestScanTTL keeps stale status from lingering when scans stop.
	latestScanTTL = 24 * 60 * 60 // seconds
)

func setLatestScan(ctx context.Context, kv store.KVStore, latest store.LatestScan) error {
	data, err := json.Marshal(latest)
	if err != nil {
		return fmt.Errorf("marshal latest scan: %w", err)
	}
	return kv.SetValueWithTTL(ctx, latestScanKey, string(data), latestScanTTL)
}
