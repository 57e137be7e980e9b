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

func newDashboardForTest(history *memHistory, attendance *memAttendanceRepo, marks *memMarksRepo, goals GoalSettingsProvider) (*DashboardService, *stubCacheRepo) {
	cacheRepo := &stubCacheRepo{}
	svc := NewDashboardService(DashboardServiceParams{
		Attendance: attendance,
		Marks:      marks,
		History:    history,
		Goals:      goals,
		Cache:      NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true),
		Metrics:    NewMetricsService(),
		Config:     DashboardServiceConfig{RecentWeeks: 8},
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	return svc, cacheRepo
}

func TestDashboardServiceComposesAndCaches(t *testing.T) {
	attendance := newMemAttendanceRepo(
		models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 6, Happened: 10},
		models.AttendanceSubject{ID: "a2", UserID: "u1", Name: "Chemistry", Attended: 9, Happened: 10, GoalPercentage: floatPtr(80)},
	)
	algebra := models.MarksSubject{
		ID: "m1", UserID: "u1", SubjectName: "Algebra", Credits: 4, MaxExams: 3,
		Exams: models.ExamList{{Name: "Quiz", ScoredMarks: 40, TotalMarks: 50}},
	}
	analytics.ApplyExamTotals(&algebra)
	marks := newMemMarksRepo(algebra)
	history := &memHistory{attendance: []models.AttendanceRecord{
		attendanceRecord("Physics", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), true),
		attendanceRecord("Physics", time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC), true),
		attendanceRecord("Physics", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), false),
	}}
	goals := NewGoalSettingsService(&memGoalRepo{}, models.GoalSettings{}, nil, nil, nil)
	svc, cacheRepo := newDashboardForTest(history, attendance, marks, goals)
	ctx := context.Background()

	resp, hit, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, hit)

	assert.Equal(t, 15, resp.Summary.TotalAttended)
	assert.Equal(t, 20, resp.Summary.TotalHappened)
	require.Len(t, resp.Attendance, 2)
	assert.Equal(t, "Chemistry", resp.Attendance[0].Subject)
	assert.Equal(t, 80.0, resp.Attendance[0].Goal)
	assert.True(t, resp.Attendance[0].MeetsGoal)
	assert.Equal(t, 1, resp.Attendance[0].CanMiss)
	assert.Equal(t, "Physics", resp.Attendance[1].Subject)
	assert.Equal(t, 6, resp.Attendance[1].ClassesNeeded)

	require.Len(t, resp.Marks, 1)
	assert.Equal(t, "A+", resp.Marks[0].LetterGrade)
	assert.Equal(t, analytics.GoalAchievable, resp.Marks[0].Goal.Status)

	require.Len(t, resp.Recent, 1)
	assert.Equal(t, "Week of 2024-03-10", resp.Recent[0].Label)
	assert.Equal(t, 50.0, resp.Recent[0].Percentage)
	require.NotNil(t, history.lastFilter.From)
	assert.Equal(t, time.Date(2024, 1, 24, 12, 0, 0, 0, time.UTC), *history.lastFilter.From)

	cached, hit, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, resp.Summary.TotalAttended, cached.Summary.TotalAttended)
	assert.Equal(t, 1, history.calls)
	assert.Contains(t, cacheRepo.store, "tracker:u1:dashboard")
}

func TestDashboardServiceEmptyUser(t *testing.T) {
	svc, _ := newDashboardForTest(&memHistory{}, newMemAttendanceRepo(), newMemMarksRepo(), nil)

	resp, _, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, resp.Attendance)
	assert.Empty(t, resp.Marks)
	assert.Empty(t, resp.Recent)
	assert.Zero(t, resp.Summary.AttendancePercentage)
}

func TestDashboardServiceListFailure(t *testing.T) {
	attendance := newMemAttendanceRepo()
	attendance.listErr = assert.AnError
	svc, _ := newDashboardForTest(&memHistory{}, attendance, newMemMarksRepo(), nil)

	_, _, err := svc.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
