// Package feedback aggregates crowd-sourced verdicts per URL and owns all
// access to the url_scan_feedback table. Aggregation is a pure read; storage
// errors degrade to "no feedback" rather than failing the scan.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres"
	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres/models"
)

// MajorityThreshold is the minimum number of community feedbacks before a
// disagreeing majority verdict annotates the automated explanation.
const MajorityThreshold = 3

// Aggregator reads and writes community feedback.
type Aggregator struct {
	db  *postgres.DB
	now func() time.Time
}

// NewAggregator creates a feedback aggregator on the given datastore handle.
func NewAggregator(db *postgres.DB) *Aggregator {
	return &Aggregator{db: db, now: time.Now}
}

// Aggregate groups the URL's feedback records by user verdict, sums their
// counts, and reports the top group as the majority verdict. Tolerates
// concurrent inserts: it only ever reads and sums.
func (a *Aggregator) Aggregate(ctx context.Context, url string) neurasec.CommunityFeedback {
	var stats []neurasec.FeedbackStat
	err := a.db.Gorm().WithContext(ctx).
		Model(&models.ScanFeedback{}).
		Select("user_verdict, SUM(feedback_count) as count").
		Where("url = ?", url).
		Group("user_verdict").
		Order("count DESC").
		Scan(&stats).Error
	if err != nil {
		slog.Warn("Feedback aggregation failed, treating as no feedback", "url", url, "error", err)
		return neurasec.CommunityFeedback{}
	}
	if len(stats) == 0 {
		return neurasec.CommunityFeedback{}
	}

	var total int64
	for _, s := range stats {
		total += s.Count
	}
	return neurasec.CommunityFeedback{
		HasFeedback:     true,
		MajorityVerdict: stats[0].UserVerdict,
		TotalFeedbacks:  total,
		FeedbackStats:   stats,
	}
}

// Submission is one community feedback entry for a scanned URL.
type Submission struct {
	URL             string
	OriginalVerdict string
	UserVerdict     string
	UserComment     string
	UserIP          string
}

// Record stores a feedback submission with deduplicated increment semantics:
// a repeat submission of the same verdict for the same URL from the same IP
// bumps feedback_count instead of inserting a new row. Unlike the read path,
// write failures are surfaced so the API can tell the submitter.
func (a *Aggregator) Record(ctx context.Context, sub Submission) error {
	if !neurasec.ValidUserVerdict(sub.UserVerdict) {
		return fmt.Errorf("invalid user verdict %q", sub.UserVerdict)
	}

	g := a.db.Gorm().WithContext(ctx)

	var existing models.ScanFeedback
	err := g.Where("url = ? AND user_ip = ? AND user_verdict = ?", sub.URL, sub.UserIP, sub.UserVerdict).
		First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"feedback_count": gorm.Expr("feedback_count + 1"),
			"submitted_at":   a.now(),
		}
		if sub.UserComment != "" {
			updates["user_comment"] = sub.UserComment
		}
		if err := g.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("increment feedback: %w", err)
		}
		return nil
	case err == gorm.ErrRecordNotFound:
		row := models.ScanFeedback{
			URL:             sub.URL,
			OriginalVerdict: sub.OriginalVerdict,
			UserVerdict:     sub.UserVerdict,
			UserComment:     sub.UserComment,
			SubmittedAt:     a.now(),
			UserIP:          sub.UserIP,
			FeedbackCount:   1,
		}
		if err := g.Create(&row).Error; err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("look up feedback: %w", err)
	}
}
