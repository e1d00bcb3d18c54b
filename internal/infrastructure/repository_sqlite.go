package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ytd-go/ytd/internal/domain"
	"github.com/ytd-go/ytd/pkg/ytd"
)

// filterColumns lists the columns FindAll accepts as filters
var filterColumns = map[string]bool{
	"result":     true,
	"binary":     true,
	"output_dir": true,
}

// SQLiteDownloadRepository implements DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

// NewSQLiteDownloadRepository creates a new SQLite repository
func NewSQLiteDownloadRepository(dbPath string) (*SQLiteDownloadRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// Create stores a new record
func (r *SQLiteDownloadRepository) Create(record *domain.DownloadRecord) error {
	return r.db.Create(record).Error
}

// Delete deletes a record by ID
func (r *SQLiteDownloadRepository) Delete(id string) error {
	res := r.db.Delete(&domain.DownloadRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a record by ID
func (r *SQLiteDownloadRepository) FindByID(id string) (*domain.DownloadRecord, error) {
	var record domain.DownloadRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindAll finds records with optional filters, newest first.
// Unknown filter keys are rejected so they never reach the SQL text.
func (r *SQLiteDownloadRepository) FindAll(filters map[string]interface{}) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// Count returns the total number of records
func (r *SQLiteDownloadRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.DownloadRecord{}).Count(&count).Error
	return count, err
}

// CountByResult returns the number of records with the given result
func (r *SQLiteDownloadRepository) CountByResult(result ytd.ResultType) (int64, error) {
	var count int64
	err := r.db.Model(&domain.DownloadRecord{}).Where("result = ?", result).Count(&count).Error
	return count, err
}

// GetStats returns history statistics
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	if err := r.db.Model(&domain.DownloadRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	resultCounts := []struct {
		Result ytd.ResultType
		Count  int64
	}{}

	if err := r.db.Model(&domain.DownloadRecord{}).
		Select("result, count(*) as count").
		Group("result").
		Scan(&resultCounts).Error; err != nil {
		return nil, err
	}

	for _, rc := range resultCounts {
		switch rc.Result {
		case ytd.ResultSuccess:
			stats.Success = rc.Count
		case ytd.ResultIOError:
			stats.IOError = rc.Count
		case ytd.ResultFailure:
			stats.Failure = rc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
