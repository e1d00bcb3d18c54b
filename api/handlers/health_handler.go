package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ytd-go/ytd/internal/app"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	service *app.DownloadService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *app.DownloadService) *HealthHandler {
	return &HealthHandler{service: service}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	History bool   `json:"history"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		History: h.service.HistoryEnabled(),
	})
}
