package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/dto"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

type dashboardService interface {
	Get(ctx context.Context, userID string) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Current attendance and marks status
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	start := time.Now()
	dashboard, cacheHit, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTimed(c, start, dashboard, cacheHit)
}
