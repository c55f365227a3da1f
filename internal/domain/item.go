package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemState represents the current state of a tracked item
type ItemState string

const (
	StatePending     ItemState = "pending"
	StateSearching   ItemState = "searching" // re-resolving a candidate
	StateDownloading ItemState = "downloading"
	StateCompleted   ItemState = "completed"
	StateFailed      ItemState = "failed"
	StateCancelled   ItemState = "cancelled"
)

// Item is the unit of work tracked from candidate selection through download
// completion. Exactly one Item exists per UniqueHash within a job.
type Item struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	JobID            string     `json:"job_id" gorm:"not null;index"`
	UniqueHash       string     `json:"unique_hash" gorm:"not null;index"`
	Artist           string     `json:"artist"`
	Title            string     `json:"title" gorm:"not null"`
	Album            string     `json:"album,omitempty"`
	State            ItemState  `json:"state" gorm:"not null;index"`
	AttemptCount     int        `json:"attempt_count" gorm:"default:0"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	BytesTransferred int64      `json:"bytes_transferred"`
	DestinationPath  string     `json:"destination_path,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// SourceRequest is the originating request, when the item came out of a
	// search batch rather than a direct enqueue.
	SourceRequest *TrackRequest `json:"source_request,omitempty" gorm:"-"`

	// Selected is the candidate currently assigned for transfer; Alternates
	// holds the lower-ranked candidates kept for fallback after the retry
	// cap is exhausted.
	Selected   *Candidate  `json:"selected,omitempty" gorm:"-"`
	Alternates []Candidate `json:"-" gorm:"-"`
}

// NewItem creates a new item in the pending state.
func NewItem(jobID, artist, title, album string) *Item {
	return &Item{
		ID:         uuid.New().String(),
		JobID:      jobID,
		UniqueHash: UniqueHash(artist, title, album),
		Artist:     artist,
		Title:      title,
		Album:      album,
		State:      StatePending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// UniqueHash derives the stable identifier used to deduplicate items across
// re-imports: sha1 over the normalized artist/title/album triple.
func UniqueHash(artist, title, album string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	h := sha1.Sum([]byte(norm(artist) + "|" + norm(title) + "|" + norm(album)))
	return hex.EncodeToString(h[:])
}

// MarkSearching marks the item as re-resolving a candidate
func (it *Item) MarkSearching() {
	it.State = StateSearching
	it.UpdatedAt = time.Now()
}

// MarkDownloading marks the item as transferring
func (it *Item) MarkDownloading() {
	it.State = StateDownloading
	now := time.Now()
	if it.StartedAt == nil {
		it.StartedAt = &now
	}
	it.UpdatedAt = now
}

// MarkCompleted marks the item as completed
func (it *Item) MarkCompleted(destinationPath string) {
	it.State = StateCompleted
	it.DestinationPath = destinationPath
	it.ErrorMessage = ""
	now := time.Now()
	it.CompletedAt = &now
	it.UpdatedAt = now
}

// MarkFailed marks the item as failed with the given reason
func (it *Item) MarkFailed(err error) {
	it.State = StateFailed
	if err != nil {
		it.ErrorMessage = err.Error()
	}
	it.UpdatedAt = time.Now()
}

// MarkCancelled marks the item as cancelled
func (it *Item) MarkCancelled() {
	it.State = StateCancelled
	it.UpdatedAt = time.Now()
}

// IncrementAttempt increments the transfer attempt count
func (it *Item) IncrementAttempt() {
	it.AttemptCount++
	it.UpdatedAt = time.Now()
}

// CanRetry checks if a failed item may be retried against the attempt cap
func (it *Item) CanRetry(maxAttempts int) bool {
	return it.State == StateFailed && it.AttemptCount < maxAttempts
}

// NextAlternate pops the next-ranked fallback candidate, or nil if none left.
func (it *Item) NextAlternate() *Candidate {
	if len(it.Alternates) == 0 {
		return nil
	}
	next := it.Alternates[0]
	it.Alternates = it.Alternates[1:]
	return &next
}

// IsTerminal checks if the item is in a state the scheduler will not leave
// on its own (failed items can still be retried explicitly)
func (it *Item) IsTerminal() bool {
	return it.State == StateCompleted || it.State == StateFailed || it.State == StateCancelled
}

// IsPending checks if the item is waiting for a worker
func (it *Item) IsPending() bool {
	return it.State == StatePending
}

// IsActive checks if the item currently occupies a transfer worker
func (it *Item) IsActive() bool {
	return it.State == StateSearching || it.State == StateDownloading
}
