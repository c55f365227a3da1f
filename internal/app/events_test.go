package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/trackhound/internal/domain"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(ItemStateChanged{ItemID: "item-1", NewState: domain.StateCompleted})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			changed, ok := evt.(ItemStateChanged)
			require.True(t, ok)
			assert.Equal(t, "item-1", changed.ItemID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()

	_, cancel := bus.Subscribe()
	defer cancel()

	// Publish far past the subscriber buffer; overflow is dropped, never
	// blocking the publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Publish(SearchProgress{BatchID: "b", Ordinal: i, State: RequestSearching})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// A second cancel is a no-op.
	cancel()
	bus.Publish(ItemStateChanged{ItemID: "item-1"})
}

func TestProgressAggregator_PublishEmitsSnapshot(t *testing.T) {
	registry := NewRegistry()
	bus := NewBus()
	progress := NewProgressAggregator(registry, bus)

	job := domain.NewJob("playlist.txt", domain.JobKindBatch)
	registry.AddJob(job)
	item := domain.NewItem(job.ID, "Artist", "Track", "")
	registry.Add(item)
	registry.Mutate(item.ID, func(it *domain.Item) { it.MarkCompleted("/music/track.mp3") })

	ch, cancel := bus.Subscribe()
	defer cancel()

	stats := progress.Publish(job.ID)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 100.0, stats.Percent)

	select {
	case evt := <-ch:
		changed, ok := evt.(JobProgressChanged)
		require.True(t, ok)
		assert.Equal(t, job.ID, changed.JobID)
		assert.Equal(t, stats, changed.Stats)
	case <-time.After(time.Second):
		t.Fatal("progress event not delivered")
	}
}

func TestProgressAggregator_UnknownJob(t *testing.T) {
	registry := NewRegistry()
	bus := NewBus()
	progress := NewProgressAggregator(registry, bus)

	_, err := progress.Snapshot("missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	// Publish for an unknown job emits nothing and returns a zero snapshot.
	stats := progress.Publish("missing")
	assert.Zero(t, stats.Total)
}
