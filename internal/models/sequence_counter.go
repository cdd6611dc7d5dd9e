package models

import "time"

// SequenceCounter: (şube, dönem) başına monoton artan sayaç. Barkod ve belge
// numaraları buradan üretilir. Sadece tek atomik increment-and-read ile
// güncellenir (bkz. internal/sequence).
type SequenceCounter struct {
	ID       uint   `gorm:"primaryKey"`
	BranchID uint   `gorm:"not null;uniqueIndex:idx_sequence_counters_branch_period,priority:1"`
	Period   string `gorm:"size:10;not null;uniqueIndex:idx_sequence_counters_branch_period,priority:2"` // "YYMM"

	LastNumber int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
