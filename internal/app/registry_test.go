package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/trackhound/internal/domain"
)

func TestRegistry_AddDeduplicatesByHash(t *testing.T) {
	r := NewRegistry()

	first, added := r.Add(domain.NewItem("job-1", "Daft Punk", "Get Lucky", ""))
	require.True(t, added)

	// Same track, different casing and spacing.
	second, added := r.Add(domain.NewItem("job-1", "daft  punk", "GET LUCKY", ""))
	assert.False(t, added)
	assert.Equal(t, first.ID, second.ID)
}

func TestRegistry_AddRegistersUnknownJob(t *testing.T) {
	r := NewRegistry()

	r.Add(domain.NewItem("job-x", "Artist", "Track", ""))

	stats, err := r.Snapshot("job-x")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	item := domain.NewItem("job-1", "Artist", "Track", "")
	r.Add(item)

	got, err := r.Get(item.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the registry.
	got.State = domain.StateCompleted

	again, err := r.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, again.State)
}

func TestRegistry_ClaimNextPicksOldestPending(t *testing.T) {
	r := NewRegistry()

	older := domain.NewItem("job-1", "Artist", "Older", "")
	older.CreatedAt = time.Now().Add(-time.Minute)
	older.Selected = &domain.Candidate{OwnerID: "peer", FilePath: "older.mp3"}
	newer := domain.NewItem("job-1", "Artist", "Newer", "")
	newer.Selected = &domain.Candidate{OwnerID: "peer", FilePath: "newer.mp3"}
	r.Add(newer)
	r.Add(older)

	claimed, ok := r.ClaimNext(nil)
	require.True(t, ok)
	assert.Equal(t, older.ID, claimed.ID)
	assert.Equal(t, domain.StateDownloading, claimed.State)

	claimed, ok = r.ClaimNext(nil)
	require.True(t, ok)
	assert.Equal(t, newer.ID, claimed.ID)

	_, ok = r.ClaimNext(nil)
	assert.False(t, ok)
}

func TestRegistry_ClaimNextMarksUnselectedSearching(t *testing.T) {
	r := NewRegistry()

	unresolved := domain.NewItem("job-1", "Artist", "Unresolved", "")
	r.Add(unresolved)

	claimed, ok := r.ClaimNext(nil)
	require.True(t, ok)
	assert.Equal(t, unresolved.ID, claimed.ID)
	assert.Equal(t, domain.StateSearching, claimed.State)
}

func TestRegistry_ClaimNextHonorsSkip(t *testing.T) {
	r := NewRegistry()
	item := domain.NewItem("job-1", "Artist", "Track", "")
	r.Add(item)

	_, ok := r.ClaimNext(func(id string) bool { return id == item.ID })
	assert.False(t, ok)

	claimed, ok := r.ClaimNext(nil)
	require.True(t, ok)
	assert.Equal(t, item.ID, claimed.ID)
}

func TestRegistry_MutateReportsTransition(t *testing.T) {
	r := NewRegistry()
	item := domain.NewItem("job-1", "Artist", "Track", "")
	r.Add(item)

	before, after, snapshot, err := r.Mutate(item.ID, func(it *domain.Item) {
		it.MarkCompleted("/music/track.mp3")
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, before)
	assert.Equal(t, domain.StateCompleted, after)
	assert.Equal(t, "/music/track.mp3", snapshot.DestinationPath)

	_, _, _, err = r.Mutate("missing", func(it *domain.Item) {})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestRegistry_RemoveFreesHash(t *testing.T) {
	r := NewRegistry()
	item := domain.NewItem("job-1", "Artist", "Track", "")
	r.Add(item)

	require.NoError(t, r.Remove(item.ID))
	assert.ErrorIs(t, r.Remove(item.ID), domain.ErrItemNotFound)

	// The hash is free again after removal.
	_, added := r.Add(domain.NewItem("job-1", "Artist", "Track", ""))
	assert.True(t, added)
}

func TestRegistry_SnapshotConsistentUnderConcurrentTransitions(t *testing.T) {
	r := NewRegistry()
	job := domain.NewJob("stress", domain.JobKindBatch)
	r.AddJob(job)

	const members = 40
	ids := make([]string, members)
	for i := 0; i < members; i++ {
		item := domain.NewItem(job.ID, "Artist", fmt.Sprintf("Track %d", i), "")
		r.Add(item)
		ids[i] = item.ID
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		states := []func(*domain.Item){
			func(it *domain.Item) { it.MarkDownloading() },
			func(it *domain.Item) { it.MarkCompleted("/music/x.mp3") },
			func(it *domain.Item) { it.MarkFailed(nil) },
			func(it *domain.Item) { it.MarkCancelled() },
			func(it *domain.Item) { it.State = domain.StatePending },
		}
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			r.Mutate(ids[i%members], states[i%len(states)])
		}
	}()

	// Every observed snapshot must add up, no matter how the reads interleave
	// with the writer.
	for i := 0; i < 1000; i++ {
		stats, err := r.Snapshot(job.ID)
		require.NoError(t, err)
		assert.Equal(t, members, stats.Total)
		assert.Equal(t, stats.Total, stats.Successful+stats.Failed+stats.Todo)
	}
	close(done)
	wg.Wait()
}

func TestRegistry_JobsNewestFirst(t *testing.T) {
	r := NewRegistry()

	older := domain.NewJob("older", domain.JobKindBatch)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := domain.NewJob("newer", domain.JobKindAdhoc)
	r.AddJob(older)
	r.AddJob(newer)

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, newer.ID, jobs[0].ID)
	assert.Equal(t, older.ID, jobs[1].ID)
}

func TestRegistry_ItemsUnknownJob(t *testing.T) {
	r := NewRegistry()

	_, err := r.Items("missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = r.Snapshot("missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
