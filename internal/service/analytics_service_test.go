package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

func attendanceRecord(subject string, ts time.Time, attended bool) models.AttendanceRecord {
	name := subject
	return models.AttendanceRecord{UserID: "u1", SubjectID: subject, SubjectName: &name, Attended: attended, Timestamp: ts}
}

func newAnalyticsServiceForTest(history *memHistory, attendance *memAttendanceRepo, marks *memMarksRepo) (*AnalyticsService, *stubCacheRepo) {
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	goals := NewGoalSettingsService(&memGoalRepo{}, models.GoalSettings{}, nil, nil, nil)
	svc := NewAnalyticsService(history, attendance, marks, goals, cache, NewMetricsService(), AnalyticsConfig{Location: time.UTC, TrendWindow: 12}, zap.NewNop())
	return svc, cacheRepo
}

func TestAnalyticsServiceSummaryCaches(t *testing.T) {
	attendance := newMemAttendanceRepo(
		models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 6, Happened: 8},
		models.AttendanceSubject{ID: "a2", UserID: "u1", Name: "Chemistry", Attended: 3, Happened: 4},
	)
	marks := newMemMarksRepo(
		models.MarksSubject{ID: "m1", UserID: "u1", SubjectName: "Algebra", Credits: 4, TotalScoredMarks: 40, TotalMaxMarks: 50, GradePoint: 9},
		models.MarksSubject{ID: "m2", UserID: "u1", SubjectName: "Biology", Credits: 2, TotalScoredMarks: 30, TotalMaxMarks: 50, GradePoint: 7},
	)
	svc, cacheRepo := newAnalyticsServiceForTest(&memHistory{}, attendance, marks)
	ctx := context.Background()

	summary, hit, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 9, summary.TotalAttended)
	assert.Equal(t, 12, summary.TotalHappened)
	assert.Equal(t, 75.0, summary.AttendancePercentage)
	assert.Equal(t, 70.0, summary.MarksPercentage)
	assert.Equal(t, 6, summary.TotalCredits)
	assert.Equal(t, 150.0, summary.TotalPossibleMarks)
	assert.InDelta(t, 25.0/3, summary.WeightedGPA, 1e-9)

	cached, hit, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, summary.TotalAttended, cached.TotalAttended)
	assert.Contains(t, cacheRepo.store, "tracker:u1:summary")
}

func TestAnalyticsServiceSummaryCacheErrorIsMiss(t *testing.T) {
	attendance := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 1, Happened: 2})
	svc, cacheRepo := newAnalyticsServiceForTest(&memHistory{}, attendance, newMemMarksRepo())
	cacheRepo.getErr = assert.AnError

	summary, hit, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 50.0, summary.AttendancePercentage)
}

func TestAnalyticsServiceSummaryListFailure(t *testing.T) {
	attendance := newMemAttendanceRepo()
	attendance.listErr = assert.AnError
	svc, _ := newAnalyticsServiceForTest(&memHistory{}, attendance, newMemMarksRepo())

	_, _, err := svc.Summary(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestAnalyticsServiceAttendanceTrendWeekly(t *testing.T) {
	history := &memHistory{attendance: []models.AttendanceRecord{
		attendanceRecord("Physics", time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC), false),
		attendanceRecord("Physics", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), true),
		attendanceRecord("Chemistry", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), false),
		attendanceRecord("Chemistry", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), true),
	}}
	svc, _ := newAnalyticsServiceForTest(history, newMemAttendanceRepo(), newMemMarksRepo())
	ctx := context.Background()

	resp, hit, err := svc.AttendanceTrend(ctx, "u1", TrendFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, analytics.Weekly, resp.Granularity)
	require.Len(t, resp.Periods, 2)
	assert.Equal(t, "Week of 2024-03-03", resp.Periods[0].Label)
	assert.Equal(t, "Week of 2024-03-10", resp.Periods[1].Label)
	assert.Equal(t, 50.0, resp.Periods[0].Percentage)
	require.Len(t, resp.Periods[0].Subjects, 2)
	assert.Equal(t, "Chemistry", resp.Periods[0].Subjects[0].Subject)

	_, hit, err = svc.AttendanceTrend(ctx, "u1", TrendFilter{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, history.calls)

	resp, _, err = svc.AttendanceTrend(ctx, "u1", TrendFilter{Granularity: analytics.Daily, Limit: 1})
	require.NoError(t, err)
	require.Len(t, resp.Periods, 1)
	assert.Equal(t, "2024-03-13", resp.Periods[0].Label)
}

func TestAnalyticsServiceAttendanceTrendRange(t *testing.T) {
	history := &memHistory{attendance: []models.AttendanceRecord{
		attendanceRecord("Physics", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), true),
		attendanceRecord("Physics", time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC), true),
	}}
	svc, _ := newAnalyticsServiceForTest(history, newMemAttendanceRepo(), newMemMarksRepo())

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	resp, _, err := svc.AttendanceTrend(context.Background(), "u1", TrendFilter{Granularity: analytics.Monthly, From: &from})
	require.NoError(t, err)
	require.Len(t, resp.Periods, 1)
	assert.Equal(t, "Feb 2024", resp.Periods[0].Label)
	require.NotNil(t, history.lastFilter.From)
	assert.Equal(t, "u1", history.lastFilter.UserID)
}

func TestAnalyticsServiceMarksTrend(t *testing.T) {
	name := "Algebra"
	history := &memHistory{marks: []models.MarksRecord{
		{UserID: "u1", SubjectName: &name, ExamName: "Quiz", ScoredMarks: 8, TotalMarks: 10, Timestamp: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)},
		{UserID: "u1", SubjectName: nil, ExamName: "Lab", ScoredMarks: 12, TotalMarks: 20, Timestamp: time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)},
	}}
	svc, _ := newAnalyticsServiceForTest(history, newMemAttendanceRepo(), newMemMarksRepo())

	resp, _, err := svc.MarksTrend(context.Background(), "u1", TrendFilter{Granularity: analytics.Monthly})
	require.NoError(t, err)
	require.Len(t, resp.Periods, 1)
	period := resp.Periods[0]
	assert.Equal(t, 20.0, period.Positive)
	assert.Equal(t, 30.0, period.Total)
	assert.Equal(t, 66.67, period.Percentage)
	require.Len(t, period.Subjects, 2)
	assert.Equal(t, "Algebra", period.Subjects[0].Subject)
	assert.Equal(t, models.UnknownSubject, period.Subjects[1].Subject)
}

func TestAnalyticsServiceTrendValidation(t *testing.T) {
	svc, _ := newAnalyticsServiceForTest(&memHistory{}, newMemAttendanceRepo(), newMemMarksRepo())
	ctx := context.Background()

	_, _, err := svc.AttendanceTrend(ctx, "u1", TrendFilter{Granularity: "hourly"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, _, err = svc.MarksTrend(ctx, "u1", TrendFilter{From: &from, To: &to})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAnalyticsServiceInvalidationDropsCachedTrend(t *testing.T) {
	history := &memHistory{attendance: []models.AttendanceRecord{
		attendanceRecord("Physics", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), true),
	}}
	svc, cacheRepo := newAnalyticsServiceForTest(history, newMemAttendanceRepo(), newMemMarksRepo())
	ctx := context.Background()

	_, _, err := svc.AttendanceTrend(ctx, "u1", TrendFilter{})
	require.NoError(t, err)
	svc.cache.InvalidateUser(ctx, "u1")
	assert.Empty(t, cacheRepo.store)

	_, hit, err := svc.AttendanceTrend(ctx, "u1", TrendFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, history.calls)
}

func TestAnalyticsServiceOverview(t *testing.T) {
	name := "Algebra"
	history := &memHistory{
		attendance: []models.AttendanceRecord{attendanceRecord("Physics", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), true)},
		marks:      []models.MarksRecord{{UserID: "u1", SubjectName: &name, ScoredMarks: 5, TotalMarks: 10, Timestamp: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)}},
	}
	attendance := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 1, Happened: 1})
	svc, _ := newAnalyticsServiceForTest(history, attendance, newMemMarksRepo())
	ctx := context.Background()

	overview, hit, err := svc.Overview(ctx, "u1", TrendFilter{Granularity: analytics.Daily})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 100.0, overview.Summary.AttendancePercentage)
	require.Len(t, overview.Attendance.Periods, 1)
	require.Len(t, overview.Marks.Periods, 1)
	assert.Equal(t, 50.0, overview.Marks.Periods[0].Percentage)

	_, hit, err = svc.Overview(ctx, "u1", TrendFilter{Granularity: analytics.Daily})
	require.NoError(t, err)
	assert.True(t, hit)

	_, _, err = svc.Overview(ctx, "u1", TrendFilter{Granularity: "yearly"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
