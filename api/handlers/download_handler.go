package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytd-go/ytd/internal/app"
	"github.com/ytd-go/ytd/internal/domain"
	"github.com/ytd-go/ytd/pkg/ytd"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	service *app.DownloadService
	logger  *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(service *app.DownloadService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		service: service,
		logger:  logger,
	}
}

// ArgRequest is one downloader option. Value is omitted for flag-only options.
type ArgRequest struct {
	Name  string  `json:"name" binding:"required"`
	Value *string `json:"value"`
}

// RunDownloadRequest represents a request to run the downloader
type RunDownloadRequest struct {
	OutputDir string       `json:"output_dir"`
	Args      []ArgRequest `json:"args" binding:"dive"`
	Links     []string     `json:"links" binding:"required,min=1"`
}

// RunDownload handles POST /api/v1/downloads.
// The downloader runs synchronously; the response carries the classified record.
// Only application/json bodies are accepted, so plain cross-site form posts
// cannot start a run.
func (h *DownloadHandler) RunDownload(c *gin.Context) {
	if c.ContentType() != gin.MIMEJSON {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "content type must be " + gin.MIMEJSON})
		return
	}

	var req RunDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	args := make([]ytd.Arg, 0, len(req.Args))
	for _, arg := range req.Args {
		if arg.Value != nil {
			args = append(args, ytd.NewArgWithValue(arg.Name, *arg.Value))
		} else {
			args = append(args, ytd.NewArg(arg.Name))
		}
	}

	dlReq := app.DownloadRequest{
		OutputDir: req.OutputDir,
		Args:      args,
		Links:     req.Links,
	}
	if err := h.service.CheckRemote(dlReq); err != nil {
		h.logger.Warn("Rejected download request", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.Download(c.Request.Context(), dlReq)
	if err != nil {
		switch {
		case errors.Is(err, ytd.ErrInvalidDirectory), errors.Is(err, app.ErrNoLinks):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to run download", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	record, err := h.service.GetRecord(c.Param("id"))
	if err != nil {
		h.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListDownloads handles GET /api/v1/downloads.
// Query filters: result, binary, output_dir.
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filter := app.RecordFilter{
		Result:    ytd.ResultType(c.Query("result")),
		Binary:    c.Query("binary"),
		OutputDir: c.Query("output_dir"),
	}
	if filter.Result != "" && !domain.ValidateResultType(filter.Result) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown result type: " + string(filter.Result)})
		return
	}

	records, err := h.service.ListRecords(filter)
	if err != nil {
		h.historyError(c, err)
		return
	}
	if records == nil {
		records = []*domain.DownloadRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats()
	if err != nil {
		h.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteRecord(id); err != nil {
		h.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download record deleted"})
}

// historyError maps history lookup errors to responses
func (h *DownloadHandler) historyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
	case errors.Is(err, app.ErrHistoryDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		h.logger.Error("History query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
