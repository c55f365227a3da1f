package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem_StartsPending(t *testing.T) {
	item := NewItem("job-1", "Daft Punk", "Get Lucky", "Random Access Memories")

	assert.Equal(t, StatePending, item.State)
	assert.Equal(t, "job-1", item.JobID)
	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.UniqueHash)
	assert.Zero(t, item.AttemptCount)
}

func TestUniqueHash_NormalizesWhitespaceAndCase(t *testing.T) {
	a := UniqueHash("Daft Punk", "Get Lucky", "")
	b := UniqueHash("daft  punk", "GET LUCKY ", "")
	c := UniqueHash("Daft Punk", "Get Lucky", "Random Access Memories")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestItem_StateTransitions(t *testing.T) {
	item := NewItem("job-1", "Artist", "Title", "")

	item.MarkDownloading()
	assert.Equal(t, StateDownloading, item.State)
	require.NotNil(t, item.StartedAt)
	assert.True(t, item.IsActive())

	item.MarkCompleted("/music/title.mp3")
	assert.Equal(t, StateCompleted, item.State)
	assert.Equal(t, "/music/title.mp3", item.DestinationPath)
	require.NotNil(t, item.CompletedAt)
	assert.True(t, item.IsTerminal())
}

func TestItem_MarkDownloadingKeepsFirstStart(t *testing.T) {
	item := NewItem("job-1", "Artist", "Title", "")

	item.MarkDownloading()
	first := item.StartedAt

	item.MarkDownloading()
	assert.Equal(t, first, item.StartedAt)
}

func TestItem_MarkCompletedClearsError(t *testing.T) {
	item := NewItem("job-1", "Artist", "Title", "")
	item.MarkFailed(errors.New("connection reset"))
	assert.Equal(t, "connection reset", item.ErrorMessage)

	item.MarkCompleted("/music/title.mp3")
	assert.Empty(t, item.ErrorMessage)
}

func TestItem_CanRetry(t *testing.T) {
	item := NewItem("job-1", "Artist", "Title", "")

	// Only failed items can be retried.
	assert.False(t, item.CanRetry(3))

	item.MarkFailed(errors.New("timed out"))
	item.AttemptCount = 2
	assert.True(t, item.CanRetry(3))

	item.AttemptCount = 3
	assert.False(t, item.CanRetry(3))
}

func TestItem_NextAlternate(t *testing.T) {
	item := NewItem("job-1", "Artist", "Title", "")
	item.Alternates = []Candidate{
		{OwnerID: "peer1", FilePath: "a.mp3"},
		{OwnerID: "peer2", FilePath: "b.mp3"},
	}

	next := item.NextAlternate()
	require.NotNil(t, next)
	assert.Equal(t, "peer1", next.OwnerID)

	next = item.NextAlternate()
	require.NotNil(t, next)
	assert.Equal(t, "peer2", next.OwnerID)

	assert.Nil(t, item.NextAlternate())
}

func TestComputeJobStats_CountersAlwaysSum(t *testing.T) {
	items := []*Item{
		{State: StateCompleted},
		{State: StateCompleted},
		{State: StateFailed},
		{State: StateCancelled},
		{State: StatePending},
		{State: StateDownloading},
	}

	stats := ComputeJobStats("job-1", items)

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 2, stats.Todo)
	assert.Equal(t, stats.Total, stats.Successful+stats.Failed+stats.Todo)
	assert.InDelta(t, 66.6, stats.Percent, 0.1)
}

func TestComputeJobStats_EmptyJob(t *testing.T) {
	stats := ComputeJobStats("job-1", nil)

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Percent)
}
