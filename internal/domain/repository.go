package domain

import (
	"errors"

	"github.com/ytd-go/ytd/pkg/ytd"
)

// ErrRecordNotFound is returned when no record matches the requested ID
var ErrRecordNotFound = errors.New("download record not found")

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create stores a new record
	Create(record *DownloadRecord) error

	// Delete deletes a record by ID
	Delete(id string) error

	// FindByID finds a record by ID
	FindByID(id string) (*DownloadRecord, error)

	// FindAll finds records with optional column filters, newest first
	FindAll(filters map[string]interface{}) ([]*DownloadRecord, error)

	// Count returns the total number of records
	Count() (int64, error)

	// CountByResult returns the number of records with the given result
	CountByResult(result ytd.ResultType) (int64, error)

	// GetStats returns history statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents history statistics
type DownloadStats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	IOError int64 `json:"ioerror"`
	Failure int64 `json:"failure"`
}
