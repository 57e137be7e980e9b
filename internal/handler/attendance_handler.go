package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

type attendanceService interface {
	List(ctx context.Context, userID string) ([]dto.AttendanceSubjectResponse, error)
	Create(ctx context.Context, userID string, req dto.CreateAttendanceSubjectRequest) (*dto.AttendanceSubjectResponse, error)
	Update(ctx context.Context, userID, id string, req dto.UpdateAttendanceSubjectRequest) (*dto.AttendanceSubjectResponse, error)
	Delete(ctx context.Context, userID, id string) error
	Mark(ctx context.Context, userID, id string, attended bool) (*dto.AttendanceSubjectResponse, error)
	Undo(ctx context.Context, userID, id string) (*dto.AttendanceSubjectResponse, error)
	Projection(ctx context.Context, userID, id string, goal *float64) (*analytics.AttendanceProjection, error)
}

// AttendanceHandler manages attendance subjects and their class log.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// List godoc
// @Summary List attendance subjects with projections
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /attendance/subjects [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	subjects, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Create godoc
// @Summary Add an attendance subject
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAttendanceSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/subjects [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateAttendanceSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid subject payload"))
		return
	}
	subject, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Update godoc
// @Summary Edit an attendance subject
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body dto.UpdateAttendanceSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/subjects/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateAttendanceSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid subject payload"))
		return
	}
	subject, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete an attendance subject and its class log
// @Tags Attendance
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 204
// @Router /attendance/subjects/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mark godoc
// @Summary Record one class as attended or missed
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body dto.MarkAttendanceRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/subjects/{id}/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid mark payload"))
		return
	}
	if req.Attended == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "attended is required"))
		return
	}
	subject, err := h.service.Mark(c.Request.Context(), userID, c.Param("id"), *req.Attended)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Undo godoc
// @Summary Reverse the most recent class record
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/subjects/{id}/undo [post]
func (h *AttendanceHandler) Undo(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	subject, err := h.service.Undo(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Projection godoc
// @Summary Classes needed or skippable for a goal
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param goal query number false "Goal percentage, defaults to the subject goal"
// @Success 200 {object} response.Envelope
// @Router /attendance/subjects/{id}/projection [get]
func (h *AttendanceHandler) Projection(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var goal *float64
	if raw := strings.TrimSpace(c.Query("goal")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "goal must be a number"))
			return
		}
		goal = &value
	}
	projection, err := h.service.Projection(c.Request.Context(), userID, c.Param("id"), goal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projection, nil)
}
