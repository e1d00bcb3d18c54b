package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ytd-go/ytd/internal/domain"
	"github.com/ytd-go/ytd/pkg/ytd"
)

var (
	// ErrNoLinks is returned when a request carries no link
	ErrNoLinks = errors.New("at least one link is required")

	// ErrHistoryDisabled is returned by history queries when no repository is configured
	ErrHistoryDisabled = errors.New("download history is disabled")

	// ErrArgNotAllowed is returned for a remote request naming an option outside downloader.allowed_args
	ErrArgNotAllowed = errors.New("argument not allowed")

	// ErrOutputDirNotAllowed is returned for a remote request naming a directory outside downloader.output_dir
	ErrOutputDirNotAllowed = errors.New("output directory not allowed")
)

// DownloadRequest describes one downloader run
type DownloadRequest struct {
	OutputDir string
	Args      []ytd.Arg
	Links     []string // passed after the args, in order
}

// RecordFilter narrows history listings. Empty fields match everything.
type RecordFilter struct {
	Result    ytd.ResultType
	Binary    string
	OutputDir string
}

// DownloadService builds downloader jobs from requests, runs them and
// records the outcome in the history repository.
type DownloadService struct {
	repo      domain.DownloadRepository // nil disables history
	config    *domain.DownloaderConfig
	logger    *zap.Logger
	semaphore chan struct{} // limits simultaneous downloader processes
}

// NewDownloadService creates a new download service.
// repo may be nil when history is disabled.
func NewDownloadService(repo domain.DownloadRepository, config *domain.DownloaderConfig, logger *zap.Logger) *DownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}
	return &DownloadService{
		repo:      repo,
		config:    config,
		logger:    logger,
		semaphore: make(chan struct{}, limit),
	}
}

// HistoryEnabled reports whether runs are recorded
func (s *DownloadService) HistoryEnabled() bool {
	return s.repo != nil
}

// BuildJob turns a request into a downloader job.
// Configured default args come first, then the request args.
func (s *DownloadService) BuildJob(req DownloadRequest) (*ytd.YoutubeDL, error) {
	if len(req.Links) == 0 {
		return nil, ErrNoLinks
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.config.OutputDir
	}

	args := make([]ytd.Arg, 0, len(s.config.DefaultArgs)+len(req.Args))
	for _, raw := range s.config.DefaultArgs {
		args = append(args, ytd.ParseArg(raw))
	}
	args = append(args, req.Args...)

	return ytd.NewMultipleLinks(outputDir, args, req.Links,
		ytd.WithBinary(s.config.Binary),
		ytd.WithLogger(s.logger))
}

// CheckRemote applies the restrictions for requests from untrusted callers:
// every arg name must be listed in downloader.allowed_args, and the output
// directory must be downloader.output_dir or below it.
func (s *DownloadService) CheckRemote(req DownloadRequest) error {
	for _, arg := range req.Args {
		if !s.argAllowed(arg.Name()) {
			return fmt.Errorf("%w: %q", ErrArgNotAllowed, arg.Name())
		}
	}

	if req.OutputDir == "" {
		return nil
	}
	root, err := filepath.Abs(s.config.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	// relative paths resolve against the working directory, as the downloader's would
	dir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutputDirNotAllowed, req.OutputDir)
	}
	return nil
}

func (s *DownloadService) argAllowed(name string) bool {
	for _, allowed := range s.config.AllowedArgs {
		if name == allowed {
			return true
		}
	}
	return false
}

// Download runs the downloader for a request and blocks until it exits.
// Downloader failures are reported in the record; an error is returned only
// when the job cannot be built, ctx ends while waiting for a slot, or the
// record cannot be stored.
func (s *DownloadService) Download(ctx context.Context, req DownloadRequest) (*domain.DownloadRecord, error) {
	job, err := s.BuildJob(req)
	if err != nil {
		return nil, err
	}

	// The downloader process itself is not cancellable; ctx only bounds the wait.
	// select picks randomly among ready cases, so a done ctx is checked first.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	record := domain.NewDownloadRecord(job)

	s.logger.Info("Processing download",
		zap.String("id", record.ID),
		zap.Strings("links", job.Links()),
		zap.String("dir", job.OutputDir()))

	record.MarkStarted()
	result := job.Download()
	record.MarkFinished(result)

	if result.Success() {
		s.logger.Info("Download completed",
			zap.String("id", record.ID),
			zap.Int64("duration_ms", record.DurationMS))
	} else {
		s.logger.Warn("Download failed",
			zap.String("id", record.ID),
			zap.String("result", string(result.Type())),
			zap.Error(result.Err()))
	}

	if s.repo != nil {
		if err := s.repo.Create(record); err != nil {
			s.logger.Error("Failed to store download record", zap.String("id", record.ID), zap.Error(err))
			return record, fmt.Errorf("failed to store download record: %w", err)
		}
	}

	return record, nil
}

// GetRecord returns a stored record
func (s *DownloadService) GetRecord(id string) (*domain.DownloadRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.FindByID(id)
}

// ListRecords returns stored records matching filter
func (s *DownloadService) ListRecords(filter RecordFilter) ([]*domain.DownloadRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}

	filters := make(map[string]interface{})
	if filter.Result != "" {
		if !domain.ValidateResultType(filter.Result) {
			return nil, fmt.Errorf("unknown result type: %s", filter.Result)
		}
		filters["result"] = filter.Result
	}
	if filter.Binary != "" {
		filters["binary"] = filter.Binary
	}
	if filter.OutputDir != "" {
		filters["output_dir"] = filter.OutputDir
	}
	return s.repo.FindAll(filters)
}

// GetStats returns history statistics
func (s *DownloadService) GetStats() (*domain.DownloadStats, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.GetStats()
}

// DeleteRecord removes a stored record
func (s *DownloadService) DeleteRecord(id string) error {
	if s.repo == nil {
		return ErrHistoryDisabled
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("Download record deleted", zap.String("id", id))
	return nil
}
