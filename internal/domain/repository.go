package domain

// HistoryRepository defines the interface for archiving finished jobs and
// items. The live item registry is in memory; the archive only receives
// records once they reach a terminal state, plus the owning job rows.
type HistoryRepository interface {
	// SaveJob creates or updates a job record
	SaveJob(job *Job) error

	// SaveItem creates or updates an item record
	SaveItem(item *Item) error

	// FindJob finds a job by ID
	FindJob(id string) (*Job, error)

	// FindJobs lists all archived jobs, newest first
	FindJobs() ([]*Job, error)

	// FindItemsByJob lists all archived items belonging to a job
	FindItemsByJob(jobID string) ([]*Item, error)

	// FindItemsByState finds archived items by state
	FindItemsByState(state ItemState) ([]*Item, error)

	// GetStats returns archive-wide statistics
	GetStats() (*HistoryStats, error)
}

// HistoryStats represents archive statistics
type HistoryStats struct {
	Jobs      int64 `json:"jobs"`
	Items     int64 `json:"items"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
