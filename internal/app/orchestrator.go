package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yourusername/trackhound/internal/domain"
	"github.com/yourusername/trackhound/internal/match"
)

// RequestState is the per-request search state machine.
type RequestState string

const (
	RequestQueued    RequestState = "queued"
	RequestSearching RequestState = "searching"
	RequestRanking   RequestState = "ranking"
	RequestMatched   RequestState = "matched"
	RequestNoMatch   RequestState = "no_match"
	RequestFailed    RequestState = "failed"
	RequestCancelled RequestState = "cancelled"
)

// maxAlternates bounds how many lower-ranked candidates are kept per request
// for transfer fallback.
const maxAlternates = 5

// RequestResult is the outcome of one request in a batch.
type RequestResult struct {
	Ordinal      int                    `json:"ordinal"`
	Request      domain.TrackRequest    `json:"request"`
	State        RequestState           `json:"state"`
	Match        *match.RankedCandidate `json:"match,omitempty"`
	Alternates   []domain.Candidate     `json:"-"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// BatchResult is the ordered outcome of a whole batch run. A cancelled run
// returns the partial result accumulated so far rather than discarding it.
type BatchResult struct {
	ID         string          `json:"id"`
	Results    []RequestResult `json:"results"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Matched returns the number of requests that found a best match.
func (b *BatchResult) Matched() int {
	n := 0
	for _, r := range b.Results {
		if r.State == RequestMatched {
			n++
		}
	}
	return n
}

// BatchOptions tunes one RunBatch call. Zero values fall back to the
// orchestrator's configured defaults.
type BatchOptions struct {
	MaxConcurrency    int
	PerRequestTimeout time.Duration

	// OnProgress, when set, is invoked after every request state transition.
	// It must not block; long-running observers should subscribe to the bus
	// instead.
	OnProgress func(ordinal int, state RequestState)
}

// SearchOrchestrator fans a batch of track requests out to the search
// transport, ranks each request's candidates, and selects the best match per
// request. The fan-out budget is independent from the download scheduler's
// worker pool.
type SearchOrchestrator struct {
	client     domain.SearchClient
	conditions *match.ConditionSet
	config     *domain.SearchConfig
	bus        *Bus
	logger     *zap.Logger
}

// NewSearchOrchestrator creates a search orchestrator.
func NewSearchOrchestrator(
	client domain.SearchClient,
	conditions *match.ConditionSet,
	config *domain.SearchConfig,
	bus *Bus,
	logger *zap.Logger,
) *SearchOrchestrator {
	return &SearchOrchestrator{
		client:     client,
		conditions: conditions,
		config:     config,
		bus:        bus,
		logger:     logger,
	}
}

// RunBatch processes all requests with at most MaxConcurrency searches in
// flight. Per-request failures (timeouts, transport errors, empty results)
// are recorded in the result and never abort sibling requests. When ctx is
// cancelled, requests not yet started are marked cancelled and the partial
// result is returned.
func (o *SearchOrchestrator) RunBatch(ctx context.Context, requests []domain.TrackRequest, opts BatchOptions) *BatchResult {
	batch := &BatchResult{
		ID:        uuid.New().String(),
		Results:   make([]RequestResult, len(requests)),
		StartedAt: time.Now(),
	}
	for i, req := range requests {
		batch.Results[i] = RequestResult{Ordinal: i, Request: req, State: RequestQueued}
	}

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = o.config.Concurrency
	}
	timeout := opts.PerRequestTimeout
	if timeout <= 0 {
		timeout = o.config.PerRequestTimeout
	}

	o.logger.Info("Starting search batch",
		zap.String("batch_id", batch.ID),
		zap.Int("requests", len(requests)),
		zap.Int("concurrency", limit))

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup

	for i := range batch.Results {
		// Cooperative cancellation: acquiring the slot is the pre-start
		// suspension point. A request that never got a slot stays untouched
		// and is marked cancelled below.
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(res *RequestResult) {
			defer wg.Done()
			defer sem.Release(1)
			o.runRequest(ctx, batch.ID, res, timeout, opts.OnProgress)
		}(&batch.Results[i])
	}

	wg.Wait()

	for i := range batch.Results {
		if batch.Results[i].State == RequestQueued {
			o.setState(batch.ID, &batch.Results[i], RequestCancelled, opts.OnProgress)
		}
	}

	batch.FinishedAt = time.Now()
	o.logger.Info("Search batch finished",
		zap.String("batch_id", batch.ID),
		zap.Int("matched", batch.Matched()),
		zap.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)))
	return batch
}

// ResolveRequest runs a single search outside of any batch and returns the
// best-ranked candidate plus up to maxAlternates fallbacks. It is how the
// download scheduler re-resolves items enqueued without a selected candidate.
func (o *SearchOrchestrator) ResolveRequest(ctx context.Context, req domain.TrackRequest) (*match.RankedCandidate, []domain.Candidate, error) {
	searchCtx, cancel := context.WithTimeout(ctx, o.config.PerRequestTimeout)
	defer cancel()

	query := domain.SearchQuery{Text: req.Query()}

	var mu sync.Mutex
	var candidates []domain.Candidate
	_, err := o.client.Search(searchCtx, query, func(batch []domain.Candidate) {
		mu.Lock()
		candidates = append(candidates, batch...)
		mu.Unlock()
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, domain.ErrSearchTimeout
		}
		return nil, nil, err
	}

	ranked := match.Rank(req, candidates, o.conditions)
	if len(ranked) == 0 {
		return nil, nil, domain.ErrNoCandidates
	}

	best := ranked[0]
	var alternates []domain.Candidate
	for _, alt := range ranked[1:] {
		if len(alternates) == maxAlternates {
			break
		}
		alternates = append(alternates, alt.Candidate)
	}
	return &best, alternates, nil
}

// runRequest drives one request through searching and ranking. Every failure
// is caught here and converted into a terminal request state.
func (o *SearchOrchestrator) runRequest(ctx context.Context, batchID string, res *RequestResult, timeout time.Duration, onProgress func(int, RequestState)) {
	o.setState(batchID, res, RequestSearching, onProgress)

	searchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := domain.SearchQuery{Text: res.Request.Query()}

	var mu sync.Mutex
	var candidates []domain.Candidate
	total, err := o.client.Search(searchCtx, query, func(batch []domain.Candidate) {
		mu.Lock()
		candidates = append(candidates, batch...)
		mu.Unlock()
	})

	if err != nil {
		switch {
		case ctx.Err() != nil:
			// The batch was cancelled while this search was in flight; the
			// accumulated candidates are discarded without rollback of
			// already-finished siblings.
			o.setState(batchID, res, RequestCancelled, onProgress)
		case errors.Is(err, context.DeadlineExceeded):
			res.ErrorMessage = domain.ErrSearchTimeout.Error()
			o.setState(batchID, res, RequestFailed, onProgress)
			o.logger.Warn("Search timed out",
				zap.String("batch_id", batchID),
				zap.Int("ordinal", res.Ordinal),
				zap.String("request", res.Request.String()))
		default:
			res.ErrorMessage = err.Error()
			o.setState(batchID, res, RequestFailed, onProgress)
			o.logger.Warn("Search failed",
				zap.String("batch_id", batchID),
				zap.Int("ordinal", res.Ordinal),
				zap.String("request", res.Request.String()),
				zap.Error(err))
		}
		return
	}

	o.setState(batchID, res, RequestRanking, onProgress)

	ranked := match.Rank(res.Request, candidates, o.conditions)
	if len(ranked) == 0 {
		res.ErrorMessage = domain.ErrNoCandidates.Error()
		o.setState(batchID, res, RequestNoMatch, onProgress)
		o.logger.Info("No candidates survived filtering",
			zap.String("batch_id", batchID),
			zap.Int("ordinal", res.Ordinal),
			zap.String("request", res.Request.String()),
			zap.Int("raw_candidates", total))
		return
	}

	best := ranked[0]
	res.Match = &best
	for _, alt := range ranked[1:] {
		if len(res.Alternates) == maxAlternates {
			break
		}
		res.Alternates = append(res.Alternates, alt.Candidate)
	}
	o.setState(batchID, res, RequestMatched, onProgress)

	o.logger.Info("Request matched",
		zap.String("batch_id", batchID),
		zap.Int("ordinal", res.Ordinal),
		zap.String("request", res.Request.String()),
		zap.String("owner", best.Candidate.OwnerID),
		zap.String("file", best.Candidate.FilePath),
		zap.Float64("score", best.Score),
		zap.Int("raw_candidates", total))
}

func (o *SearchOrchestrator) setState(batchID string, res *RequestResult, state RequestState, onProgress func(int, RequestState)) {
	res.State = state
	if o.bus != nil {
		o.bus.Publish(SearchProgress{BatchID: batchID, Ordinal: res.Ordinal, State: state})
	}
	if onProgress != nil {
		onProgress(res.Ordinal, state)
	}
}
