package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytd-go/ytd/pkg/ytd"
)

// DownloadRecord is the stored history entry of one downloader run
type DownloadRecord struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	Links       string         `json:"links" gorm:"type:text"` // newline separated
	OutputDir   string         `json:"output_dir" gorm:"not null"`
	Binary      string         `json:"binary" gorm:"not null"`
	Command     string         `json:"command" gorm:"type:text"` // shell-escaped, display only
	Result      ytd.ResultType `json:"result" gorm:"not null;index"`
	Output      string         `json:"output,omitempty" gorm:"type:text"`
	DurationMS  int64          `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewDownloadRecord creates a history entry for a job about to run
func NewDownloadRecord(job *ytd.YoutubeDL) *DownloadRecord {
	return &DownloadRecord{
		ID:        uuid.New().String(),
		Links:     strings.Join(job.Links(), "\n"),
		OutputDir: job.OutputDir(),
		Binary:    job.Binary(),
		Command:   job.CommandLine(),
		CreatedAt: time.Now(),
	}
}

// MarkStarted records the start time of the run
func (r *DownloadRecord) MarkStarted() {
	now := time.Now()
	r.StartedAt = &now
}

// MarkFinished copies the classified result into the record
func (r *DownloadRecord) MarkFinished(result ytd.Result) {
	now := time.Now()
	r.CompletedAt = &now
	r.Result = result.Type()
	r.Output = result.Output()
	if r.StartedAt != nil {
		r.DurationMS = now.Sub(*r.StartedAt).Milliseconds()
	}
}

// LinkList returns the links of the run
func (r *DownloadRecord) LinkList() []string {
	if r.Links == "" {
		return nil
	}
	return strings.Split(r.Links, "\n")
}

// Succeeded checks if the run exited successfully
func (r *DownloadRecord) Succeeded() bool {
	return r.Result == ytd.ResultSuccess
}

// ValidateResultType checks if a result filter value is known
func ValidateResultType(result ytd.ResultType) bool {
	return result == ytd.ResultSuccess || result == ytd.ResultIOError || result == ytd.ResultFailure
}
