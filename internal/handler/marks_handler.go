package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/dto"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

type marksService interface {
	List(ctx context.Context, userID string) ([]dto.MarksSubjectResponse, error)
	Create(ctx context.Context, userID string, req dto.CreateMarksSubjectRequest) (*dto.MarksSubjectResponse, error)
	AddExam(ctx context.Context, userID, id string, req dto.AddExamRequest) (*dto.MarksSubjectResponse, error)
	RemoveExam(ctx context.Context, userID, id string, index int) (*dto.MarksSubjectResponse, error)
	Delete(ctx context.Context, userID, id string) error
	GoalAnalysis(ctx context.Context, userID, id string, query dto.GoalQuery) (*dto.GoalAnalysis, error)
}

// MarksHandler manages marks subjects and their exams.
type MarksHandler struct {
	service marksService
}

// NewMarksHandler constructs the handler.
func NewMarksHandler(service marksService) *MarksHandler {
	return &MarksHandler{service: service}
}

// List godoc
// @Summary List marks subjects with grades and goal analysis
// @Tags Marks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /marks/subjects [get]
func (h *MarksHandler) List(c *gin.Context) {
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
// @Summary Add a marks subject
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateMarksSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /marks/subjects [post]
func (h *MarksHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateMarksSubjectRequest
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

// Delete godoc
// @Summary Delete a marks subject
// @Tags Marks
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 204
// @Router /marks/subjects/{id} [delete]
func (h *MarksHandler) Delete(c *gin.Context) {
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

// AddExam godoc
// @Summary Append an exam result
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body dto.AddExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /marks/subjects/{id}/exams [post]
func (h *MarksHandler) AddExam(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.AddExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid exam payload"))
		return
	}
	subject, err := h.service.AddExam(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// RemoveExam godoc
// @Summary Remove an exam by position
// @Tags Marks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param index path int true "Zero-based exam index"
// @Success 200 {object} response.Envelope
// @Router /marks/subjects/{id}/exams/{index} [delete]
func (h *MarksHandler) RemoveExam(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam index must be an integer"))
		return
	}
	subject, err := h.service.RemoveExam(c.Request.Context(), userID, c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Goal godoc
// @Summary Goal analysis for a subject
// @Tags Marks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param target_percentage query number false "Custom target percentage"
// @Param target_gpa query number false "Custom target grade point"
// @Success 200 {object} response.Envelope
// @Router /marks/subjects/{id}/goal [get]
func (h *MarksHandler) Goal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var query dto.GoalQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid goal query"))
		return
	}
	analysis, err := h.service.GoalAnalysis(c.Request.Context(), userID, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}
