package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

// FixedTargetPercentage is the percentage every subject is always projected against.
const FixedTargetPercentage = 70.0

// MarksSubjectRepository is the persistence contract for marks snapshots.
type MarksSubjectRepository interface {
	List(ctx context.Context, userID string) ([]models.MarksSubject, error)
	Get(ctx context.Context, userID, id string) (*models.MarksSubject, error)
	Create(ctx context.Context, subject *models.MarksSubject) error
	MutateExams(ctx context.Context, userID, id string, fn repository.ExamMutation) (*models.MarksSubject, error)
	Delete(ctx context.Context, userID, id string) error
}

// MarksService manages marks subjects, their exams and goal analysis.
type MarksService struct {
	repo      MarksSubjectRepository
	goals     GoalSettingsProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMarksService constructs the service.
func NewMarksService(repo MarksSubjectRepository, goals GoalSettingsProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MarksService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarksService{repo: repo, goals: goals, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// List returns the user's subjects with letter grades and goal analysis.
func (s *MarksService) List(ctx context.Context, userID string) ([]dto.MarksSubjectResponse, error) {
	subjects, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err, "marks subjects not found", "failed to list marks subjects")
	}
	settings, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.MarksSubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		resp = append(resp, describeMarks(subject, settings, nil))
	}
	return resp, nil
}

// Create adds a subject with no exams.
func (s *MarksService) Create(ctx context.Context, userID string, req dto.CreateMarksSubjectRequest) (*dto.MarksSubjectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid marks subject")
	}
	subject := &models.MarksSubject{
		UserID:      userID,
		SubjectName: strings.TrimSpace(req.SubjectName),
		Credits:     req.Credits,
		MaxExams:    req.MaxExams,
		Exams:       models.ExamList{},
	}
	analytics.ApplyExamTotals(subject)
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, translateRepoError(err, "marks subject not found", "failed to create marks subject")
	}
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// AddExam appends an exam, recomputes the snapshot and logs a history record.
func (s *MarksService) AddExam(ctx context.Context, userID, id string, req dto.AddExamRequest) (*dto.MarksSubjectResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam")
	}
	recordedAt := s.now().UTC()
	subject, err := s.repo.MutateExams(ctx, userID, id, func(subject *models.MarksSubject) (*models.MarksRecord, error) {
		if len(subject.Exams) >= subject.MaxExams {
			return nil, appErrors.Clone(appErrors.ErrExamLimitReached, fmt.Sprintf("subject allows at most %d exams", subject.MaxExams))
		}
		exam := models.Exam{
			Name:        strings.TrimSpace(req.ExamName),
			ScoredMarks: req.ScoredMarks,
			TotalMarks:  req.TotalMarks,
			RecordedAt:  recordedAt,
		}
		subject.Exams = append(subject.Exams, exam)
		analytics.ApplyExamTotals(subject)

		name := subject.SubjectName
		return &models.MarksRecord{
			SubjectName: &name,
			ExamName:    exam.Name,
			ScoredMarks: exam.ScoredMarks,
			TotalMarks:  exam.TotalMarks,
			Timestamp:   recordedAt,
		}, nil
	})
	if err != nil {
		return nil, translateRepoError(err, "marks subject not found", "failed to add exam")
	}
	s.metrics.RecordExam()
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// RemoveExam drops the exam at index and recomputes the snapshot. The marks
// history keeps the original record.
func (s *MarksService) RemoveExam(ctx context.Context, userID, id string, index int) (*dto.MarksSubjectResponse, error) {
	subject, err := s.repo.MutateExams(ctx, userID, id, func(subject *models.MarksSubject) (*models.MarksRecord, error) {
		if index < 0 || index >= len(subject.Exams) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "exam index out of range")
		}
		subject.Exams = append(subject.Exams[:index:index], subject.Exams[index+1:]...)
		analytics.ApplyExamTotals(subject)
		return nil, nil
	})
	if err != nil {
		return nil, translateRepoError(err, "marks subject not found", "failed to remove exam")
	}
	s.cache.InvalidateUser(ctx, userID)
	return s.respond(ctx, userID, *subject)
}

// Delete removes a subject and its marks history.
func (s *MarksService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return translateRepoError(err, "marks subject not found", "failed to delete marks subject")
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

// GoalAnalysis projects a subject against the fixed targets and an optional
// custom one. A GPA target wins over a percentage target.
func (s *MarksService) GoalAnalysis(ctx context.Context, userID, id string, query dto.GoalQuery) (*dto.GoalAnalysis, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid goal target")
	}
	subject, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, translateRepoError(err, "marks subject not found", "failed to load marks subject")
	}
	settings, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	var custom *analytics.GoalProjection
	input := analytics.GoalInputFromSubject(*subject, settings.MarksPerCredit)
	switch {
	case query.TargetGPA != nil:
		p := analytics.ProjectGPAGoal(input, *query.TargetGPA)
		custom = &p
	case query.TargetPercentage != nil:
		p := analytics.ProjectGoal(input, *query.TargetPercentage)
		custom = &p
	}
	analysis := describeMarks(*subject, settings, custom).Goal
	return &analysis, nil
}

func (s *MarksService) respond(ctx context.Context, userID string, subject models.MarksSubject) (*dto.MarksSubjectResponse, error) {
	settings, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := describeMarks(subject, settings, nil)
	return &resp, nil
}

func (s *MarksService) settings(ctx context.Context, userID string) (models.GoalSettings, error) {
	if s.goals == nil {
		return models.DefaultGoalSettings(userID), nil
	}
	settings, err := s.goals.Get(ctx, userID)
	if err != nil {
		return models.GoalSettings{}, err
	}
	return *settings, nil
}

func describeMarks(subject models.MarksSubject, settings models.GoalSettings, custom *analytics.GoalProjection) dto.MarksSubjectResponse {
	input := analytics.GoalInputFromSubject(subject, settings.MarksPerCredit)
	remaining := subject.RemainingExams()
	if remaining < 0 {
		remaining = 0
	}
	return dto.MarksSubjectResponse{
		MarksSubject:   subject,
		LetterGrade:    analytics.LetterGrade(subject.Percentage),
		RemainingExams: remaining,
		Goal: dto.GoalAnalysis{
			SubjectID: subject.ID,
			Subject:   subject.SubjectName,
			Fixed:     analytics.ProjectGoal(input, FixedTargetPercentage),
			GPA:       analytics.ProjectGPAGoal(input, settings.GPAGoal),
			Custom:    custom,
		},
	}
}
