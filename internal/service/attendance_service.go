package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

// AttendanceSubjectRepository is the persistence contract for attendance snapshots.
type AttendanceSubjectRepository interface {
	List(ctx context.Context, userID string) ([]models.AttendanceSubject, error)
	Get(ctx context.Context, userID, id string) (*models.AttendanceSubject, error)
	Create(ctx context.Context, subject *models.AttendanceSubject) error
	Update(ctx context.Context, subject *models.AttendanceSubject) error
	Delete(ctx context.Context, userID, id string) error
	RecordMark(ctx context.Context, userID, id string, attended bool) (*models.AttendanceSubject, *models.AttendanceRecord, error)
	UndoLatest(ctx context.Context, userID, id string) (*models.AttendanceSubject, error)
}

// AttendanceService manages attendance subjects and projects them against goals.
type AttendanceService struct {
	repo      AttendanceSubjectRepository
	goals     GoalSettingsProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo AttendanceSubjectRepository, goals GoalSettingsProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, goals: goals, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns every subject with its projection against the subject or user goal.
func (s *AttendanceService) List(ctx context.Context, userID string) ([]dto.AttendanceSubjectResponse, error) {
	subjects, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err, "attendance subjects not found", "failed to list attendance subjects")
	}
	fallback, err := s.defaultGoal(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.AttendanceSubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		resp = append(resp, withProjection(subject, fallback))
	}
	return resp, nil
}

// Create adds a subject.
func (s *AttendanceService) Create(ctx context.Context, userID string, req dto.CreateAttendanceSubjectRequest) (*dto.AttendanceSubjectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance subject")
	}
	subject := &models.AttendanceSubject{
		UserID:         userID,
		Name:           strings.TrimSpace(req.Name),
		Attended:       req.Attended,
		Happened:       req.Happened,
		GoalPercentage: req.GoalPercentage,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, translateRepoError(err, "attendance subject not found", "failed to create attendance subject")
	}
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// Update edits the name, counters or goal of a subject.
func (s *AttendanceService) Update(ctx context.Context, userID, id string, req dto.UpdateAttendanceSubjectRequest) (*dto.AttendanceSubjectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance subject")
	}
	subject, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, translateRepoError(err, "attendance subject not found", "failed to load attendance subject")
	}
	if req.Name != nil {
		subject.Name = strings.TrimSpace(*req.Name)
	}
	if req.Attended != nil {
		subject.Attended = *req.Attended
	}
	if req.Happened != nil {
		subject.Happened = *req.Happened
	}
	switch {
	case req.ClearGoal:
		subject.GoalPercentage = nil
	case req.GoalPercentage != nil:
		goal := *req.GoalPercentage
		subject.GoalPercentage = &goal
	}
	if subject.Attended > subject.Happened {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attended classes cannot exceed classes held")
	}
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, translateRepoError(err, "attendance subject not found", "failed to update attendance subject")
	}
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// Delete removes a subject and its history.
func (s *AttendanceService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return translateRepoError(err, "attendance subject not found", "failed to delete attendance subject")
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

// Mark records one held class as attended or missed.
func (s *AttendanceService) Mark(ctx context.Context, userID, id string, attended bool) (*dto.AttendanceSubjectResponse, error) {
	subject, _, err := s.repo.RecordMark(ctx, userID, id, attended)
	if err != nil {
		return nil, translateRepoError(err, "attendance subject not found", "failed to record attendance")
	}
	outcome := "absent"
	if attended {
		outcome = "present"
	}
	s.metrics.RecordAttendanceMark(outcome)
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// Undo removes the most recent attendance record of the subject and reverses
// the counters it incremented.
func (s *AttendanceService) Undo(ctx context.Context, userID, id string) (*dto.AttendanceSubjectResponse, error) {
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return nil, translateRepoError(err, "attendance subject not found", "failed to load attendance subject")
	}
	subject, err := s.repo.UndoLatest(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoHistory) {
			return nil, appErrors.Clone(appErrors.ErrNothingToUndo, "")
		}
		return nil, translateRepoError(err, "attendance subject not found", "failed to undo attendance")
	}
	s.metrics.RecordAttendanceMark("undo")
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// Projection evaluates a subject against goal, or its own goal when goal is nil.
func (s *AttendanceService) Projection(ctx context.Context, userID, id string, goal *float64) (*analytics.AttendanceProjection, error) {
	if goal != nil && (math.IsNaN(*goal) || *goal <= 0 || *goal > 100) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "goal must be greater than 0 and at most 100")
	}
	subject, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, translateRepoError(err, "attendance subject not found", "failed to load attendance subject")
	}
	var projection analytics.AttendanceProjection
	if goal != nil {
		projection = analytics.ProjectAttendance(subject.Attended, subject.Happened, *goal)
	} else {
		fallback, err := s.defaultGoal(ctx, userID)
		if err != nil {
			return nil, err
		}
		projection = analytics.ProjectSubject(*subject, fallback)
	}
	return &projection, nil
}

func (s *AttendanceService) respond(ctx context.Context, userID string, subject models.AttendanceSubject) (*dto.AttendanceSubjectResponse, error) {
	fallback, err := s.defaultGoal(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := withProjection(subject, fallback)
	return &resp, nil
}

func (s *AttendanceService) defaultGoal(ctx context.Context, userID string) (float64, error) {
	if s.goals == nil {
		return models.DefaultAttendanceGoal, nil
	}
	settings, err := s.goals.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return settings.AttendanceGoalPercent, nil
}

func withProjection(subject models.AttendanceSubject, fallback float64) dto.AttendanceSubjectResponse {
	return dto.AttendanceSubjectResponse{
		AttendanceSubject: subject,
		Projection:        analytics.ProjectSubject(subject, fallback),
	}
}
