package infrastructure

import (
	"fmt"

	"github.com/yourusername/trackhound/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite.
// It archives jobs and their items once the items reach a terminal state; the
// live registry never reads back from it.
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository creates a new SQLite repository
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema for Job and Item
	if err := db.AutoMigrate(&domain.Job{}, &domain.Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// SaveJob creates or updates a job record
func (r *SQLiteHistoryRepository) SaveJob(job *domain.Job) error {
	return r.db.Save(job).Error
}

// SaveItem creates or updates an item record
func (r *SQLiteHistoryRepository) SaveItem(item *domain.Item) error {
	return r.db.Save(item).Error
}

// FindJob finds a job by ID
func (r *SQLiteHistoryRepository) FindJob(id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.First(&job, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindJobs lists all archived jobs, newest first
func (r *SQLiteHistoryRepository) FindJobs() ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := r.db.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// FindItemsByJob lists all archived items belonging to a job
func (r *SQLiteHistoryRepository) FindItemsByJob(jobID string) ([]*domain.Item, error) {
	var items []*domain.Item
	err := r.db.Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindItemsByState finds archived items by state
func (r *SQLiteHistoryRepository) FindItemsByState(state domain.ItemState) ([]*domain.Item, error) {
	var items []*domain.Item
	err := r.db.Where("state = ?", state).Find(&items).Error
	return items, err
}

// GetStats returns archive-wide statistics
func (r *SQLiteHistoryRepository) GetStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	if err := r.db.Model(&domain.Job{}).Count(&stats.Jobs).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&domain.Item{}).Count(&stats.Items).Error; err != nil {
		return nil, err
	}

	// Get counts by state
	stateCounts := []struct {
		State domain.ItemState
		Count int64
	}{}

	if err := r.db.Model(&domain.Item{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		switch sc.State {
		case domain.StateCompleted:
			stats.Completed = sc.Count
		case domain.StateFailed:
			stats.Failed = sc.Count
		case domain.StateCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
