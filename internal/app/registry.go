package app

import (
	"sort"
	"sync"

	"github.com/yourusername/trackhound/internal/domain"
)

// Registry is the shared store of jobs and their member items. Every mutation
// and every aggregate read goes through the registry mutex, so a snapshot
// computed here is always consistent with the item states it was derived
// from. Items are deduplicated by unique hash: enqueuing a hash that is
// already tracked is a no-op returning the existing item.
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*domain.Job
	items    map[string]*domain.Item   // by item id
	byHash   map[string]*domain.Item   // by unique hash
	jobItems map[string][]*domain.Item // insertion order per job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:     make(map[string]*domain.Job),
		items:    make(map[string]*domain.Item),
		byHash:   make(map[string]*domain.Item),
		jobItems: make(map[string][]*domain.Item),
	}
}

// AddJob registers a job.
func (r *Registry) AddJob(job *domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		r.jobs[job.ID] = job
		r.jobItems[job.ID] = nil
	}
}

// Job returns the job with the given id.
func (r *Registry) Job(id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// Jobs returns all registered jobs, newest first.
func (r *Registry) Jobs() []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}

// Add inserts the item unless its unique hash is already tracked, in which
// case the existing item is returned and added is false.
func (r *Registry) Add(item *domain.Item) (existing *domain.Item, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.byHash[item.UniqueHash]; ok {
		return prior, false
	}
	if _, ok := r.jobs[item.JobID]; !ok {
		// Track the membership even when the job row was never registered;
		// snapshots for such a job still have to add up.
		r.jobs[item.JobID] = &domain.Job{ID: item.JobID, SourceKind: domain.JobKindAdhoc}
	}
	r.items[item.ID] = item
	r.byHash[item.UniqueHash] = item
	r.jobItems[item.JobID] = append(r.jobItems[item.JobID], item)
	return item, true
}

// Get returns a shallow copy of the item with the given id. Live item
// pointers never leave the registry lock.
func (r *Registry) Get(id string) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

// Remove deletes an item from the registry. Items are only ever removed by
// explicit deletion, never as a side effect of reaching a terminal state.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	delete(r.items, id)
	delete(r.byHash, item.UniqueHash)
	members := r.jobItems[item.JobID]
	for i, it := range members {
		if it.ID == id {
			r.jobItems[item.JobID] = append(members[:i], members[i+1:]...)
			break
		}
	}
	return nil
}

// Mutate applies fn to the item under the registry lock and reports the state
// before and after fn ran. All item mutation funnels through here so
// concurrent workers never touch item fields directly. The returned snapshot
// is a post-mutation copy.
func (r *Registry) Mutate(id string, fn func(*domain.Item)) (before, after domain.ItemState, snapshot *domain.Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return "", "", nil, domain.ErrItemNotFound
	}
	before = item.State
	fn(item)
	copied := *item
	return before, item.State, &copied, nil
}

// ClaimNext atomically picks the oldest claimable pending item, transitions
// it out of pending, and returns a shallow copy for the worker. Items that
// already carry a selected candidate move straight to downloading; items
// without one move to searching so the worker re-resolves first. skip reports
// item ids that must not be claimed (paused items).
func (r *Registry) ClaimNext(skip func(id string) bool) (*domain.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *domain.Item
	for _, item := range r.items {
		if !item.IsPending() || (skip != nil && skip(item.ID)) {
			continue
		}
		if oldest == nil || item.CreatedAt.Before(oldest.CreatedAt) {
			oldest = item
		}
	}
	if oldest == nil {
		return nil, false
	}
	if oldest.Selected == nil {
		oldest.MarkSearching()
	} else {
		oldest.MarkDownloading()
	}
	copied := *oldest
	return &copied, true
}

// Outstanding reports whether any item is still pending or occupying a
// worker. Paused items count as outstanding.
func (r *Registry) Outstanding() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if !item.IsTerminal() {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of items currently in a transfer worker.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, item := range r.items {
		if item.IsActive() {
			n++
		}
	}
	return n
}

// Items returns shallow copies of a job's member items in insertion order.
func (r *Registry) Items(jobID string) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.jobItems[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	out := make([]*domain.Item, len(members))
	for i, it := range members {
		copied := *it
		out[i] = &copied
	}
	return out, nil
}

// AllItems returns shallow copies of every tracked item.
func (r *Registry) AllItems() []*domain.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Item, 0, len(r.items))
	for _, it := range r.items {
		copied := *it
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Snapshot derives the job's aggregate counters by scanning member states
// under the registry lock. The counters are never cached, so
// successful+failed+todo always equals the member count no matter how the
// scan interleaves with worker transitions.
func (r *Registry) Snapshot(jobID string) (domain.JobStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.jobItems[jobID]
	if !ok {
		return domain.JobStats{}, domain.ErrJobNotFound
	}
	return domain.ComputeJobStats(jobID, members), nil
}
