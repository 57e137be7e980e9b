package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

// GoalSettingsRepository persists per-user goal settings.
type GoalSettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.GoalSettings, error)
	Upsert(ctx context.Context, settings *models.GoalSettings) error
}

// GoalSettingsProvider is the read side other services depend on.
type GoalSettingsProvider interface {
	Get(ctx context.Context, userID string) (*models.GoalSettings, error)
}

// GoalSettingsService resolves settings against configured defaults.
type GoalSettingsService struct {
	repo      GoalSettingsRepository
	defaults  models.GoalSettings
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGoalSettingsService constructs the service. Zero fields in defaults fall
// back to 75% attendance, GPA 8.0 and 25 marks per credit.
func NewGoalSettingsService(repo GoalSettingsRepository, defaults models.GoalSettings, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GoalSettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalSettingsService{
		repo:      repo,
		defaults:  defaults.WithDefaults(models.DefaultGoalSettings("")),
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Get returns the user's settings, or the defaults when none were saved.
func (s *GoalSettingsService) Get(ctx context.Context, userID string) (*models.GoalSettings, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			settings := s.defaults
			settings.UserID = userID
			return &settings, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal settings")
	}
	settings := stored.WithDefaults(s.defaults)
	return &settings, nil
}

// Update applies the non-nil fields of req and persists the result.
func (s *GoalSettingsService) Update(ctx context.Context, userID string, req dto.UpdateGoalSettingsRequest) (*models.GoalSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid goal settings")
	}
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.AttendanceGoalPercent != nil {
		settings.AttendanceGoalPercent = *req.AttendanceGoalPercent
	}
	if req.GPAGoal != nil {
		settings.GPAGoal = *req.GPAGoal
	}
	if req.MarksPerCredit != nil {
		settings.MarksPerCredit = *req.MarksPerCredit
	}
	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save goal settings")
	}
	s.cache.InvalidateUser(ctx, userID)
	s.logger.Info("goal settings updated", zap.String("user_id", userID))
	return settings, nil
}
