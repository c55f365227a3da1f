package app

import "github.com/yourusername/trackhound/internal/domain"

// ProgressAggregator publishes consistent aggregate snapshots for jobs. Every
// snapshot is recomputed from the current item states under the registry
// lock; counters are never accumulated incrementally, so
// successful+failed+todo always equals the member count regardless of how
// reads interleave with worker transitions.
type ProgressAggregator struct {
	registry *Registry
	bus      *Bus
}

// NewProgressAggregator creates a progress aggregator.
func NewProgressAggregator(registry *Registry, bus *Bus) *ProgressAggregator {
	return &ProgressAggregator{registry: registry, bus: bus}
}

// Snapshot returns the job's current aggregate counters.
func (p *ProgressAggregator) Snapshot(jobID string) (domain.JobStats, error) {
	return p.registry.Snapshot(jobID)
}

// Publish recomputes the job's snapshot and emits it on the bus. Observers
// re-pull from the carried snapshot instead of trusting deltas.
func (p *ProgressAggregator) Publish(jobID string) domain.JobStats {
	stats, err := p.registry.Snapshot(jobID)
	if err != nil {
		return domain.JobStats{}
	}
	p.bus.Publish(JobProgressChanged{JobID: jobID, Stats: stats})
	return stats
}
