package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Per-request and per-item failures
// are converted to terminal states at task boundaries; these sentinels only
// cross the core boundary inside stored error messages or wrapped returns
// from direct calls such as RetryItem.
var (
	// ErrSearchTimeout marks a search that exceeded its per-request timeout.
	// Non-fatal for the batch; the affected request is marked failed.
	ErrSearchTimeout = errors.New("search timed out")

	// ErrNoCandidates marks a request whose search returned no candidate
	// passing the required conditions. Terminal for the request.
	ErrNoCandidates = errors.New("no candidates found")

	// ErrDuplicateItem is informational: the unique hash is already tracked
	// and the enqueue was a no-op.
	ErrDuplicateItem = errors.New("item already enqueued")

	// ErrItemNotFound is returned by operations addressing an unknown item id.
	ErrItemNotFound = errors.New("item not found")

	// ErrJobNotFound is returned by operations addressing an unknown job id.
	ErrJobNotFound = errors.New("job not found")
)

// TransferError wraps a failed transfer attempt. Retryable up to the attempt
// cap, after which the item's failed state becomes sticky.
type TransferError struct {
	Candidate Candidate
	Attempt   int
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer from %s failed (attempt %d): %v", e.Candidate.OwnerID, e.Attempt, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
