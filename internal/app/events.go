package app

import (
	"sync"

	"github.com/yourusername/trackhound/internal/domain"
)

// Event is the closed set of engine notifications. Observers receive concrete
// variants and type-switch on them; payloads are plain data snapshots, never
// live registry pointers.
type Event interface {
	isEvent()
}

// ItemStateChanged is published whenever an item transitions state.
type ItemStateChanged struct {
	ItemID   string           `json:"item_id"`
	JobID    string           `json:"job_id"`
	OldState domain.ItemState `json:"old_state"`
	NewState domain.ItemState `json:"new_state"`
}

func (ItemStateChanged) isEvent() {}

// JobProgressChanged carries a fresh aggregate snapshot for the affected job.
// Observers should rely on the snapshot, not accumulate deltas.
type JobProgressChanged struct {
	JobID string          `json:"job_id"`
	Stats domain.JobStats `json:"stats"`
}

func (JobProgressChanged) isEvent() {}

// SearchProgress is published as a batch request moves through the search
// state machine.
type SearchProgress struct {
	BatchID string       `json:"batch_id"`
	Ordinal int          `json:"ordinal"`
	State   RequestState `json:"state"`
}

func (SearchProgress) isEvent() {}

// Bus is a typed publish/subscribe fan-out for engine events. It is created
// by the composition root and passed explicitly into the orchestrator and
// scheduler; there is no process-wide instance.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer. The returned channel is buffered;
// events are dropped for subscribers that fall too far behind rather than
// blocking the publisher. Call the returned func to unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
