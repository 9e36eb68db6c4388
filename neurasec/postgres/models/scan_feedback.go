package models

import "time"

// ScanFeedback is one community feedback record for a scanned URL. Many rows
// may exist per URL; aggregation groups by user_verdict and sums
// feedback_count. UserIP is advisory only, never an auth mechanism.
type ScanFeedback struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	URL             string    `gorm:"not null;index:idx_url_scan_feedback_url" json:"url"`
	OriginalVerdict string    `gorm:"not null" json:"original_verdict"`
	UserVerdict     string    `gorm:"not null" json:"user_verdict"`
	UserComment     string    `json:"user_comment"`
	SubmittedAt     time.Time `gorm:"not null" json:"submitted_at"`
	UserIP          string    `json:"user_ip"`
	FeedbackCount   int       `gorm:"not null;default:1" json:"feedback_count"`
}

func (ScanFeedback) TableName() string {
	return "url_scan_feedback"
}
