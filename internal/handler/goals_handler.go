package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

type goalSettingsService interface {
	Get(ctx context.Context, userID string) (*models.GoalSettings, error)
	Update(ctx context.Context, userID string, req dto.UpdateGoalSettingsRequest) (*models.GoalSettings, error)
}

// GoalsHandler exposes the caller's goal settings.
type GoalsHandler struct {
	service goalSettingsService
}

// NewGoalsHandler constructs the handler.
func NewGoalsHandler(service goalSettingsService) *GoalsHandler {
	return &GoalsHandler{service: service}
}

// Get godoc
// @Summary Goal settings
// @Tags Goals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /goals [get]
func (h *GoalsHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	settings, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update goal settings
// @Tags Goals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateGoalSettingsRequest true "Goal settings"
// @Success 200 {object} response.Envelope
// @Router /goals [put]
func (h *GoalsHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateGoalSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid goal settings payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
