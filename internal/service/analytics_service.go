package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

// HistoryRepository reads the append-only event logs.
type HistoryRepository interface {
	AttendanceHistory(ctx context.Context, filter models.HistoryFilter) ([]models.AttendanceRecord, error)
	MarksHistory(ctx context.Context, filter models.HistoryFilter) ([]models.MarksRecord, error)
}

type attendanceLister interface {
	List(ctx context.Context, userID string) ([]models.AttendanceSubject, error)
}

type marksLister interface {
	List(ctx context.Context, userID string) ([]models.MarksSubject, error)
}

// TrendFilter scopes a trend computation.
type TrendFilter struct {
	Granularity analytics.Granularity
	From        *time.Time
	To          *time.Time
	Limit       int
}

// AnalyticsConfig tunes bucketing.
type AnalyticsConfig struct {
	Location    *time.Location
	TrendWindow int
	CacheTTL    time.Duration
}

// AnalyticsService runs the analytics core over stored snapshots and history
// and caches the results per user.
type AnalyticsService struct {
	history    HistoryRepository
	attendance attendanceLister
	marks      marksLister
	goals      GoalSettingsProvider
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        AnalyticsConfig
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(history HistoryRepository, attendance attendanceLister, marks marksLister, goals GoalSettingsProvider, cache *CacheService, metrics *MetricsService, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TrendWindow < 0 {
		cfg.TrendWindow = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		history:    history,
		attendance: attendance,
		marks:      marks,
		goals:      goals,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Summary returns cumulative attendance, marks and GPA figures. The boolean
// reports a cache hit.
func (s *AnalyticsService) Summary(ctx context.Context, userID string) (*analytics.Summary, bool, error) {
	key := UserKey(userID, "summary")
	var cached analytics.Summary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	var (
		attendance []models.AttendanceSubject
		marks      []models.MarksSubject
		settings   *models.GoalSettings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attendance, err = s.listAttendance(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		marks, err = s.listMarks(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.settings(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	summary := analytics.Summarize(attendance, marks, settings.MarksPerCredit)
	s.store(ctx, key, summary)
	return &summary, false, nil
}

// AttendanceTrend buckets attendance history into periods.
func (s *AnalyticsService) AttendanceTrend(ctx context.Context, userID string, filter TrendFilter) (*dto.TrendResponse, bool, error) {
	filter, err := s.normaliseTrend(filter)
	if err != nil {
		return nil, false, err
	}
	key := UserKey(userID, "trend", "attendance", trendKey(filter))
	var cached dto.TrendResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	start := time.Now()
	records, err := s.history.AttendanceHistory(ctx, historyFilter(userID, filter))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	s.metrics.ObserveDBQuery("attendance_history", time.Since(start))

	resp := s.trend(analytics.AttendanceEvents(records), filter)
	s.store(ctx, key, resp)
	return resp, false, nil
}

// MarksTrend buckets marks history into periods.
func (s *AnalyticsService) MarksTrend(ctx context.Context, userID string, filter TrendFilter) (*dto.TrendResponse, bool, error) {
	filter, err := s.normaliseTrend(filter)
	if err != nil {
		return nil, false, err
	}
	key := UserKey(userID, "trend", "marks", trendKey(filter))
	var cached dto.TrendResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	start := time.Now()
	records, err := s.history.MarksHistory(ctx, historyFilter(userID, filter))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks history")
	}
	s.metrics.ObserveDBQuery("marks_history", time.Since(start))

	resp := s.trend(analytics.MarksEvents(records), filter)
	s.store(ctx, key, resp)
	return resp, false, nil
}

// Overview runs Summary and both trends concurrently over the same filter. The
// boolean is true only when every part came from cache.
func (s *AnalyticsService) Overview(ctx context.Context, userID string, filter TrendFilter) (*dto.AnalyticsOverview, bool, error) {
	var (
		out                          dto.AnalyticsOverview
		summaryHit, attHit, marksHit bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, hit, err := s.Summary(gctx, userID)
		if err != nil {
			return err
		}
		out.Summary, summaryHit = *summary, hit
		return nil
	})
	g.Go(func() error {
		trend, hit, err := s.AttendanceTrend(gctx, userID, filter)
		if err != nil {
			return err
		}
		out.Attendance, attHit = *trend, hit
		return nil
	})
	g.Go(func() error {
		trend, hit, err := s.MarksTrend(gctx, userID, filter)
		if err != nil {
			return err
		}
		out.Marks, marksHit = *trend, hit
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return &out, summaryHit && attHit && marksHit, nil
}

// SystemMetrics returns the instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) trend(events []analytics.Event, filter TrendFilter) *dto.TrendResponse {
	periods := analytics.Aggregate(events, filter.Granularity, s.cfg.Location)
	return &dto.TrendResponse{
		Granularity: filter.Granularity,
		Periods:     analytics.Recent(periods, filter.Limit),
	}
}

func (s *AnalyticsService) normaliseTrend(filter TrendFilter) (TrendFilter, error) {
	if filter.Granularity == "" {
		filter.Granularity = analytics.Weekly
	}
	if _, ok := analytics.ParseGranularity(string(filter.Granularity)); !ok {
		return filter, appErrors.Clone(appErrors.ErrValidation, "granularity must be daily, weekly or monthly")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.TrendWindow
	}
	return filter, nil
}

func (s *AnalyticsService) listAttendance(ctx context.Context, userID string) ([]models.AttendanceSubject, error) {
	start := time.Now()
	subjects, err := s.attendance.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance subjects")
	}
	s.metrics.ObserveDBQuery("attendance_subjects", time.Since(start))
	return subjects, nil
}

func (s *AnalyticsService) listMarks(ctx context.Context, userID string) ([]models.MarksSubject, error) {
	start := time.Now()
	subjects, err := s.marks.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks subjects")
	}
	s.metrics.ObserveDBQuery("marks_subjects", time.Since(start))
	return subjects, nil
}

func (s *AnalyticsService) settings(ctx context.Context, userID string) (*models.GoalSettings, error) {
	if s.goals == nil {
		settings := models.DefaultGoalSettings(userID)
		return &settings, nil
	}
	return s.goals.Get(ctx, userID)
}

func (s *AnalyticsService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("analytics cache write skipped", zap.String("key", key), zap.Error(err))
	}
}

func historyFilter(userID string, filter TrendFilter) models.HistoryFilter {
	return models.HistoryFilter{UserID: userID, From: filter.From, To: filter.To}
}

func trendKey(filter TrendFilter) string {
	return fmt.Sprintf("%s|%s|%s|%s", filter.Granularity, dateKey(filter.From), dateKey(filter.To), strconv.Itoa(filter.Limit))
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
