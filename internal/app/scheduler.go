package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/trackhound/internal/domain"
	"github.com/yourusername/trackhound/internal/match"
)

// Notifier receives job-level outcomes for user-facing notification.
type Notifier interface {
	NotifyJobCompleted(job *domain.Job, stats domain.JobStats)
	NotifyItemFailed(item *domain.Item)
}

// CandidateResolver re-runs a search for items enqueued without a selected
// candidate.
type CandidateResolver interface {
	ResolveRequest(ctx context.Context, req domain.TrackRequest) (*match.RankedCandidate, []domain.Candidate, error)
}

// claimPollInterval is how often idle workers re-check for claimable items.
const claimPollInterval = 100 * time.Millisecond

// DownloadScheduler executes selected candidates as downloads under a bounded
// worker pool. Its concurrency budget is independent from the search fan-out
// bound; the two must never share a semaphore because the network rate-limits
// searches and transfers separately.
type DownloadScheduler struct {
	registry *Registry
	transfer domain.TransferClient
	progress *ProgressAggregator
	config   *domain.TransferConfig
	bus      *Bus
	logger   *zap.Logger

	history  domain.HistoryRepository
	notifier Notifier
	resolver CandidateResolver

	mu        sync.Mutex
	running   bool
	paused    map[string]bool
	cancelled map[string]bool
	transfers map[string]context.CancelFunc
}

// NewDownloadScheduler creates a download scheduler.
func NewDownloadScheduler(
	registry *Registry,
	transfer domain.TransferClient,
	progress *ProgressAggregator,
	config *domain.TransferConfig,
	bus *Bus,
	logger *zap.Logger,
) *DownloadScheduler {
	return &DownloadScheduler{
		registry:  registry,
		transfer:  transfer,
		progress:  progress,
		config:    config,
		bus:       bus,
		logger:    logger,
		paused:    make(map[string]bool),
		cancelled: make(map[string]bool),
		transfers: make(map[string]context.CancelFunc),
	}
}

// SetHistory attaches the archive for terminal items and finished jobs.
func (s *DownloadScheduler) SetHistory(history domain.HistoryRepository) {
	s.history = history
}

// SetNotifier attaches the user-facing notifier.
func (s *DownloadScheduler) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// SetResolver attaches the search backend used to resolve a candidate for
// items enqueued without one.
func (s *DownloadScheduler) SetResolver(resolver CandidateResolver) {
	s.resolver = resolver
}

// Enqueue adds the item to the registry. Enqueuing a unique hash that is
// already tracked is a no-op returning the existing item with added=false.
func (s *DownloadScheduler) Enqueue(item *domain.Item) (*domain.Item, bool) {
	existing, added := s.registry.Add(item)
	if !added {
		s.logger.Debug("Duplicate enqueue ignored",
			zap.String("unique_hash", item.UniqueHash),
			zap.String("existing_id", existing.ID))
		return existing, false
	}

	s.logger.Info("Item enqueued",
		zap.String("id", item.ID),
		zap.String("job_id", item.JobID),
		zap.String("track", item.Artist+" - "+item.Title))
	s.bus.Publish(ItemStateChanged{ItemID: item.ID, JobID: item.JobID, OldState: "", NewState: item.State})
	s.progress.Publish(item.JobID)
	return item, true
}

// EnqueueBatchResult turns a search batch's matched results into a job with
// one item per match, deduplicated by unique hash.
func (s *DownloadScheduler) EnqueueBatchResult(batch *BatchResult, sourceLabel string) (*domain.Job, []*domain.Item) {
	job := domain.NewJob(sourceLabel, domain.JobKindBatch)
	s.registry.AddJob(job)

	items := make([]*domain.Item, 0, len(batch.Results))
	for _, res := range batch.Results {
		if res.State != RequestMatched || res.Match == nil {
			continue
		}
		req := res.Request
		item := domain.NewItem(job.ID, req.Artist, req.Title, req.Album)
		item.SourceRequest = &req
		selected := res.Match.Candidate
		item.Selected = &selected
		item.Alternates = append([]domain.Candidate(nil), res.Alternates...)

		tracked, _ := s.Enqueue(item)
		items = append(items, tracked)
	}

	if s.history != nil {
		if err := s.history.SaveJob(job); err != nil {
			s.logger.Warn("Failed to archive job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return job, items
}

// StartAll runs the transfer worker pool until every tracked item is terminal
// or ctx is cancelled. It returns ctx.Err() on cancellation, nil on drain.
func (s *DownloadScheduler) StartAll(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("Starting transfer workers", zap.Int("concurrency", s.config.Concurrency))

	// Workers run on a derived context so the pool tears down together; the
	// drained-vs-cancelled outcome is read off the caller's context.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.config.Concurrency; i++ {
		g.Go(func() error { return s.worker(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// IsRunning returns whether the worker pool is active.
func (s *DownloadScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// worker claims pending items until the registry drains or ctx is cancelled.
func (s *DownloadScheduler) worker(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		claimed, ok := s.registry.ClaimNext(s.isHeld)
		if !ok {
			if !s.registry.Outstanding() {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(claimPollInterval):
			}
			continue
		}

		s.emitTransition(claimed.ID, claimed.JobID, domain.StatePending, claimed.State)
		s.processItem(ctx, claimed)
	}
}

// isHeld reports item ids workers must not claim.
func (s *DownloadScheduler) isHeld(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused[id]
}

// processItem drives one item through its transfer attempts. All failures,
// including panics from the transport, are caught here and converted into the
// item's terminal state; they never abort sibling items.
func (s *DownloadScheduler) processItem(ctx context.Context, claimed *domain.Item) {
	id := claimed.ID

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Transfer panicked",
				zap.String("id", id),
				zap.Any("panic", r))
			s.transition(id, func(it *domain.Item) {
				it.MarkFailed(fmt.Errorf("transfer panicked: %v", r))
			})
		}
	}()

	selected := claimed.Selected
	attempts := claimed.AttemptCount

	if selected == nil {
		selected = s.resolveSelection(ctx, claimed)
		if selected == nil {
			return
		}
	}

	for {
		itemCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.transfers[id] = cancel
		s.mu.Unlock()

		dest := s.destinationPath(claimed, *selected)
		err := s.transfer.Download(itemCtx, *selected, dest, func(bytes int64) {
			// Byte progress mutates no state and emits no transition.
			s.registry.Mutate(id, func(it *domain.Item) { it.BytesTransferred = bytes })
		})

		s.mu.Lock()
		delete(s.transfers, id)
		pausedNow := s.paused[id]
		cancelledNow := s.cancelled[id]
		delete(s.cancelled, id)
		s.mu.Unlock()
		cancel()

		if err == nil {
			// Completion is applied exactly once; a duplicate completion for
			// an already-completed item is a no-op.
			s.transition(id, func(it *domain.Item) {
				if it.State == domain.StateCompleted {
					return
				}
				it.MarkCompleted(dest)
			})
			s.logger.Info("Transfer completed",
				zap.String("id", id),
				zap.String("file", dest),
				zap.String("owner", selected.OwnerID))
			return
		}

		switch {
		case pausedNow:
			// Paused mid-transfer: fall back to pending so the item stays
			// resumable; the partial file is the transport's concern.
			s.transition(id, func(it *domain.Item) {
				it.State = domain.StatePending
				it.UpdatedAt = time.Now()
			})
			s.logger.Info("Transfer paused", zap.String("id", id))
			return
		case cancelledNow || ctx.Err() != nil:
			s.transition(id, func(it *domain.Item) { it.MarkCancelled() })
			s.logger.Info("Transfer cancelled", zap.String("id", id))
			return
		}

		attempts++
		terr := &domain.TransferError{Candidate: *selected, Attempt: attempts, Err: err}
		s.logger.Warn("Transfer attempt failed",
			zap.String("id", id),
			zap.Int("attempt", attempts),
			zap.Error(err))

		if attempts >= s.config.MaxAttempts {
			// Retry cap reached for this candidate: advance to the next
			// ranked alternate if one exists, otherwise the failure sticks.
			var next *domain.Candidate
			_, _, snap, merr := s.registry.Mutate(id, func(it *domain.Item) {
				it.IncrementAttempt()
				next = it.NextAlternate()
				if next != nil {
					it.Selected = next
					it.AttemptCount = 0
					it.ErrorMessage = ""
				}
			})
			if merr != nil {
				return
			}
			if next != nil {
				s.logger.Info("Falling back to next-ranked candidate",
					zap.String("id", id),
					zap.String("owner", next.OwnerID),
					zap.String("file", next.FilePath))
				selected = next
				attempts = 0
				claimed = snap
			} else {
				s.transition(id, func(it *domain.Item) { it.MarkFailed(terr) })
				if s.notifier != nil {
					if item, gerr := s.registry.Get(id); gerr == nil {
						s.notifier.NotifyItemFailed(item)
					}
				}
				return
			}
		} else {
			s.registry.Mutate(id, func(it *domain.Item) { it.IncrementAttempt() })
		}

		select {
		case <-ctx.Done():
			s.transition(id, func(it *domain.Item) { it.MarkCancelled() })
			return
		case <-time.After(s.config.RetryDelay):
		}
	}
}

// resolveSelection re-runs the search for an item claimed without a selected
// candidate. The item arrives in the searching state; on success it moves to
// downloading with the best match assigned and the rest kept as alternates,
// and the chosen candidate is returned. On any failure the item reaches a
// terminal state here and nil is returned.
func (s *DownloadScheduler) resolveSelection(ctx context.Context, claimed *domain.Item) *domain.Candidate {
	id := claimed.ID

	if s.resolver == nil {
		s.transition(id, func(it *domain.Item) {
			it.MarkFailed(domain.ErrNoCandidates)
		})
		return nil
	}

	req := domain.TrackRequest{Artist: claimed.Artist, Title: claimed.Title, Album: claimed.Album}
	if claimed.SourceRequest != nil {
		req = *claimed.SourceRequest
	}

	s.logger.Info("Resolving candidate",
		zap.String("id", id),
		zap.String("track", req.String()))

	best, alternates, err := s.resolver.ResolveRequest(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			s.transition(id, func(it *domain.Item) { it.MarkCancelled() })
			return nil
		}
		s.logger.Warn("Candidate resolution failed",
			zap.String("id", id),
			zap.Error(err))
		s.transition(id, func(it *domain.Item) { it.MarkFailed(err) })
		if s.notifier != nil {
			if item, gerr := s.registry.Get(id); gerr == nil {
				s.notifier.NotifyItemFailed(item)
			}
		}
		return nil
	}

	selected := best.Candidate
	s.transition(id, func(it *domain.Item) {
		it.Selected = &selected
		it.Alternates = append([]domain.Candidate(nil), alternates...)
		it.MarkDownloading()
	})
	s.logger.Info("Candidate resolved",
		zap.String("id", id),
		zap.String("owner", selected.OwnerID),
		zap.String("file", selected.FilePath),
		zap.Float64("score", best.Score))
	return &selected
}

// destinationPath places the transfer under the configured download
// directory, grouped by job.
func (s *DownloadScheduler) destinationPath(item *domain.Item, cand domain.Candidate) string {
	base := filepath.Base(filepath.FromSlash(cand.FilePath))
	return filepath.Join(s.config.DownloadDir, item.JobID, base)
}

// CancelItem cancels a single item. Pending items are marked directly;
// in-flight transfers are interrupted and marked by their worker.
func (s *DownloadScheduler) CancelItem(id string) error {
	item, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if item.State == domain.StateCompleted || item.State == domain.StateCancelled {
		return fmt.Errorf("item already in terminal state: %s", item.State)
	}

	s.mu.Lock()
	cancel, active := s.transfers[id]
	if active {
		s.cancelled[id] = true
	}
	delete(s.paused, id)
	s.mu.Unlock()

	if active {
		cancel()
		return nil
	}

	s.transition(id, func(it *domain.Item) {
		if !it.IsTerminal() {
			it.MarkCancelled()
		}
	})
	s.logger.Info("Item cancelled", zap.String("id", id))
	return nil
}

// CancelAll cancels every non-terminal item.
func (s *DownloadScheduler) CancelAll() {
	for _, item := range s.registry.AllItems() {
		if item.IsTerminal() {
			continue
		}
		if err := s.CancelItem(item.ID); err != nil {
			s.logger.Debug("Cancel skipped", zap.String("id", item.ID), zap.Error(err))
		}
	}
}

// PauseItem pauses a pending or in-flight item, best effort. The item ends up
// pending-but-held and is not claimable until resumed.
func (s *DownloadScheduler) PauseItem(id string) error {
	item, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if item.IsTerminal() {
		return fmt.Errorf("cannot pause item in state %s", item.State)
	}

	s.mu.Lock()
	s.paused[id] = true
	cancel, active := s.transfers[id]
	s.mu.Unlock()

	if active {
		cancel()
	}
	s.logger.Info("Item paused", zap.String("id", id))
	return nil
}

// ResumeItem releases a paused item back to the claimable pool.
func (s *DownloadScheduler) ResumeItem(id string) error {
	if _, err := s.registry.Get(id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.paused, id)
	s.mu.Unlock()
	s.logger.Info("Item resumed", zap.String("id", id))
	return nil
}

// RetryItem puts a failed item back into the claimable pool with a fresh
// attempt budget.
func (s *DownloadScheduler) RetryItem(id string) error {
	item, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if item.State != domain.StateFailed {
		return fmt.Errorf("item is not in failed state: %s", item.State)
	}

	s.transition(id, func(it *domain.Item) {
		it.State = domain.StatePending
		it.AttemptCount = 0
		it.ErrorMessage = ""
		it.UpdatedAt = time.Now()
	})
	s.logger.Info("Item queued for retry", zap.String("id", id))
	return nil
}

// DeleteItem removes an item from the registry. This is the only way an item
// leaves the active registry.
func (s *DownloadScheduler) DeleteItem(id string) error {
	item, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if item.IsActive() {
		return fmt.Errorf("cannot delete item in state %s", item.State)
	}
	if err := s.registry.Remove(id); err != nil {
		return err
	}
	s.progress.Publish(item.JobID)
	s.logger.Info("Item deleted", zap.String("id", id))
	return nil
}

// transition applies a state mutation and emits the change events.
func (s *DownloadScheduler) transition(id string, fn func(*domain.Item)) {
	before, after, snapshot, err := s.registry.Mutate(id, fn)
	if err != nil {
		return
	}
	if before == after {
		return
	}
	s.emitTransition(id, snapshot.JobID, before, after)

	if snapshot.IsTerminal() && s.history != nil {
		if herr := s.history.SaveItem(snapshot); herr != nil {
			s.logger.Warn("Failed to archive item", zap.String("id", id), zap.Error(herr))
		}
	}
}

// emitTransition publishes the item event plus a fresh job snapshot, and
// fires the job-completed notification when the snapshot shows no work left.
func (s *DownloadScheduler) emitTransition(id, jobID string, before, after domain.ItemState) {
	s.bus.Publish(ItemStateChanged{ItemID: id, JobID: jobID, OldState: before, NewState: after})
	stats := s.progress.Publish(jobID)

	if stats.Total > 0 && stats.Todo == 0 && s.notifier != nil {
		if job, err := s.registry.Job(jobID); err == nil {
			s.notifier.NotifyJobCompleted(job, stats)
		}
	}
}
