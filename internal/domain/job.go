package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind describes where a job's requests came from
type JobKind string

const (
	JobKindBatch JobKind = "batch" // playlist or list import
	JobKindAdhoc JobKind = "adhoc" // single direct enqueue
)

// Job is a batch of items originating from one import or adhoc search.
// Aggregate counters are always derived by scanning member items, never
// stored, so they cannot drift from the item states.
type Job struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	SourceLabel string    `json:"source_label"`
	SourceKind  JobKind   `json:"source_kind" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NewJob creates a new job
func NewJob(sourceLabel string, kind JobKind) *Job {
	return &Job{
		ID:          uuid.New().String(),
		SourceLabel: sourceLabel,
		SourceKind:  kind,
		CreatedAt:   time.Now(),
	}
}

// JobStats is a consistent snapshot of a job's aggregate progress.
// Successful + Failed + Todo == Total holds for every snapshot.
type JobStats struct {
	JobID      string  `json:"job_id"`
	Total      int     `json:"total"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Todo       int     `json:"todo"`
	Percent    float64 `json:"percent"`
}

// ComputeJobStats derives a snapshot from the given member items.
func ComputeJobStats(jobID string, items []*Item) JobStats {
	stats := JobStats{JobID: jobID, Total: len(items)}
	for _, it := range items {
		switch it.State {
		case StateCompleted:
			stats.Successful++
		case StateFailed, StateCancelled:
			stats.Failed++
		default:
			stats.Todo++
		}
	}
	if stats.Total > 0 {
		stats.Percent = float64(stats.Successful+stats.Failed) / float64(stats.Total) * 100
	}
	return stats
}
