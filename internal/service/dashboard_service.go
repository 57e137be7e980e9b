package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentWeeks int
	Location    *time.Location
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Attendance attendanceLister
	Marks      marksLister
	History    HistoryRepository
	Goals      GoalSettingsProvider
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService composes the per-user dashboard from current snapshots.
type DashboardService struct {
	attendance attendanceLister
	marks      marksLister
	history    HistoryRepository
	goals      GoalSettingsProvider
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentWeeks <= 0 {
		cfg.RecentWeeks = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		attendance: params.Attendance,
		marks:      params.Marks,
		history:    params.History,
		goals:      params.Goals,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Get returns the dashboard for the user and whether it came from cache.
func (s *DashboardService) Get(ctx context.Context, userID string) (*dto.DashboardResponse, bool, error) {
	key := UserKey(userID, "dashboard")
	var cached dto.DashboardResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -7*s.cfg.RecentWeeks)

	var (
		attendance []models.AttendanceSubject
		marks      []models.MarksSubject
		records    []models.AttendanceRecord
		settings   *models.GoalSettings
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		attendance, err = s.attendance.List(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		marks, err = s.marks.List(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		records, err = s.history.AttendanceHistory(gctx, models.HistoryFilter{UserID: userID, From: &since})
		return err
	})
	g.Go(func() (err error) {
		settings, err = s.loadSettings(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, translateRepoError(err, "dashboard data not found", "failed to build dashboard")
	}
	s.metrics.ObserveDBQuery("dashboard", time.Since(start))

	resp := &dto.DashboardResponse{
		Summary:     analytics.Summarize(attendance, marks, settings.MarksPerCredit),
		Attendance:  attendanceStatuses(attendance, settings.AttendanceGoalPercent),
		Marks:       marksStatuses(marks, *settings),
		Recent:      analytics.Aggregate(analytics.AttendanceEvents(records), analytics.Weekly, s.cfg.Location),
		GeneratedAt: now,
	}
	if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("dashboard cache write skipped", zap.Error(err))
	}
	return resp, false, nil
}

func (s *DashboardService) loadSettings(ctx context.Context, userID string) (*models.GoalSettings, error) {
	if s.goals == nil {
		settings := models.DefaultGoalSettings(userID)
		return &settings, nil
	}
	settings, err := s.goals.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return settings, nil
}

func attendanceStatuses(subjects []models.AttendanceSubject, fallback float64) []dto.AttendanceStatus {
	statuses := make([]dto.AttendanceStatus, 0, len(subjects))
	for _, subject := range subjects {
		p := analytics.ProjectSubject(subject, fallback)
		statuses = append(statuses, dto.AttendanceStatus{
			SubjectID:     subject.ID,
			Subject:       subject.Name,
			Percentage:    p.DisplayPercentage,
			Goal:          p.Goal,
			MeetsGoal:     p.MeetsGoal,
			ClassesNeeded: p.ClassesNeeded,
			Reachable:     p.Reachable,
			CanMiss:       p.ClassesCanMiss,
		})
	}
	return statuses
}

func marksStatuses(subjects []models.MarksSubject, settings models.GoalSettings) []dto.MarksStatus {
	statuses := make([]dto.MarksStatus, 0, len(subjects))
	for _, subject := range subjects {
		input := analytics.GoalInputFromSubject(subject, settings.MarksPerCredit)
		statuses = append(statuses, dto.MarksStatus{
			SubjectID:   subject.ID,
			Subject:     subject.SubjectName,
			Percentage:  subject.Percentage,
			GradePoint:  subject.GradePoint,
			LetterGrade: analytics.LetterGrade(subject.Percentage),
			Credits:     subject.Credits,
			Goal:        analytics.ProjectGPAGoal(input, settings.GPAGoal),
		})
	}
	return statuses
}
