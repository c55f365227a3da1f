package infrastructure

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackhound/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteHistoryRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewSQLiteHistoryRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func TestSaveJob_RoundTrip(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	job := domain.NewJob("tracklist.txt", domain.JobKindBatch)
	require.NoError(t, repo.SaveJob(job))

	found, err := repo.FindJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
	assert.Equal(t, "tracklist.txt", found.SourceLabel)
	assert.Equal(t, domain.JobKindBatch, found.SourceKind)
}

func TestFindJob_NotFound(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.FindJob("nonexistent")
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestSaveItem_UpdatesExistingRow(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	job := domain.NewJob("tracklist.txt", domain.JobKindBatch)
	require.NoError(t, repo.SaveJob(job))

	item := domain.NewItem(job.ID, "Daft Punk", "Harder Better Faster Stronger", "")
	require.NoError(t, repo.SaveItem(item))

	item.MarkCompleted("/music/daft_punk.flac")
	require.NoError(t, repo.SaveItem(item))

	items, err := repo.FindItemsByJob(job.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.StateCompleted, items[0].State)
	assert.Equal(t, "/music/daft_punk.flac", items[0].DestinationPath)
}

func TestFindItemsByState(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	job := domain.NewJob("tracklist.txt", domain.JobKindBatch)
	require.NoError(t, repo.SaveJob(job))

	completed := domain.NewItem(job.ID, "Artist A", "Track One", "")
	completed.MarkCompleted("/music/one.mp3")
	require.NoError(t, repo.SaveItem(completed))

	failed := domain.NewItem(job.ID, "Artist B", "Track Two", "")
	failed.MarkFailed(errors.New("no peers"))
	require.NoError(t, repo.SaveItem(failed))

	items, err := repo.FindItemsByState(domain.StateFailed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, failed.ID, items[0].ID)
	assert.Equal(t, "no peers", items[0].ErrorMessage)
}

func TestGetStats_CountsByState(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	job := domain.NewJob("tracklist.txt", domain.JobKindBatch)
	require.NoError(t, repo.SaveJob(job))

	for i, title := range []string{"One", "Two", "Three"} {
		item := domain.NewItem(job.ID, "Artist", title, "")
		switch i {
		case 0:
			item.MarkCompleted("/music/" + title + ".mp3")
		case 1:
			item.MarkFailed(errors.New("timed out"))
		case 2:
			item.MarkCancelled()
		}
		require.NoError(t, repo.SaveItem(item))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Jobs)
	assert.Equal(t, int64(3), stats.Items)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Cancelled)
}

func TestFindJobs_NewestFirst(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	first := domain.NewJob("first.txt", domain.JobKindBatch)
	require.NoError(t, repo.SaveJob(first))

	second := domain.NewJob("second.txt", domain.JobKindAdhoc)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.SaveJob(second))

	jobs, err := repo.FindJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)
}
