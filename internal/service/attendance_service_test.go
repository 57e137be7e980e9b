package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

func newAttendanceServiceForTest(repo *memAttendanceRepo, goals *memGoalRepo) (*AttendanceService, *stubCacheRepo) {
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	settings := NewGoalSettingsService(goals, models.GoalSettings{}, cache, nil, zap.NewNop())
	return NewAttendanceService(repo, settings, cache, NewMetricsService(), nil, zap.NewNop()), cacheRepo
}

func TestAttendanceServiceListUsesUserGoal(t *testing.T) {
	repo := newMemAttendanceRepo(
		models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 6, Happened: 10},
		models.AttendanceSubject{ID: "a2", UserID: "u1", Name: "Chemistry", Attended: 6, Happened: 10, GoalPercentage: floatPtr(50)},
		models.AttendanceSubject{ID: "a3", UserID: "u2", Name: "Biology", Attended: 1, Happened: 1},
	)
	goals := &memGoalRepo{settings: map[string]models.GoalSettings{"u1": {UserID: "u1", AttendanceGoalPercent: 80}}}
	svc, _ := newAttendanceServiceForTest(repo, goals)

	items, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	chemistry, physics := items[0], items[1]
	assert.Equal(t, "Chemistry", chemistry.Name)
	assert.Equal(t, 50.0, chemistry.Projection.Goal)
	assert.True(t, chemistry.Projection.MeetsGoal)
	assert.Equal(t, 1, chemistry.Projection.ClassesCanMiss)

	assert.Equal(t, 80.0, physics.Projection.Goal)
	assert.False(t, physics.Projection.MeetsGoal)
	// (0.8*10 - 6) / 0.2 = 10
	assert.Equal(t, 10, physics.Projection.ClassesNeeded)
}

func TestAttendanceServiceCreateValidates(t *testing.T) {
	svc, _ := newAttendanceServiceForTest(newMemAttendanceRepo(), &memGoalRepo{})

	_, err := svc.Create(context.Background(), "u1", dto.CreateAttendanceSubjectRequest{Name: "Physics", Attended: 5, Happened: 3})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	resp, err := svc.Create(context.Background(), "u1", dto.CreateAttendanceSubjectRequest{Name: "  Physics ", Attended: 3, Happened: 4})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Physics", resp.Name)
	assert.Equal(t, 75.0, resp.Projection.Goal)
	assert.Equal(t, 75.0, resp.Projection.DisplayPercentage)
}

func TestAttendanceServiceMarkAndUndo(t *testing.T) {
	repo := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 3, Happened: 4})
	svc, cacheRepo := newAttendanceServiceForTest(repo, &memGoalRepo{})
	ctx := context.Background()

	resp, err := svc.Mark(ctx, "u1", "a1", true)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Attended)
	assert.Equal(t, 5, resp.Happened)

	resp, err = svc.Mark(ctx, "u1", "a1", false)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Attended)
	assert.Equal(t, 6, resp.Happened)
	assert.Len(t, repo.records, 2)

	resp, err = svc.Undo(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Attended)
	assert.Equal(t, 5, resp.Happened)

	resp, err = svc.Undo(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Attended)
	assert.Equal(t, 4, resp.Happened)

	_, err = svc.Undo(ctx, "u1", "a1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNothingToUndo))

	assert.Contains(t, cacheRepo.deleted, "tracker:u1:*")
}

func TestAttendanceServiceUndoOtherUsersSubject(t *testing.T) {
	repo := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics"})
	svc, _ := newAttendanceServiceForTest(repo, &memGoalRepo{})

	_, err := svc.Undo(context.Background(), "u2", "a1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceServiceUpdate(t *testing.T) {
	repo := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 3, Happened: 4, GoalPercentage: floatPtr(90)})
	svc, _ := newAttendanceServiceForTest(repo, &memGoalRepo{})
	ctx := context.Background()

	attended := 9
	_, err := svc.Update(ctx, "u1", "a1", dto.UpdateAttendanceSubjectRequest{Attended: &attended})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	name := "Applied Physics"
	resp, err := svc.Update(ctx, "u1", "a1", dto.UpdateAttendanceSubjectRequest{Name: &name, ClearGoal: true})
	require.NoError(t, err)
	assert.Equal(t, "Applied Physics", resp.Name)
	assert.Nil(t, resp.GoalPercentage)
	assert.Equal(t, 75.0, resp.Projection.Goal)

	_, err = svc.Update(ctx, "u1", "missing", dto.UpdateAttendanceSubjectRequest{Name: &name})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceServiceProjection(t *testing.T) {
	repo := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics", Attended: 7, Happened: 10})
	svc, _ := newAttendanceServiceForTest(repo, &memGoalRepo{})
	ctx := context.Background()

	p, err := svc.Projection(ctx, "u1", "a1", nil)
	require.NoError(t, err)
	assert.Equal(t, 75.0, p.Goal)
	// (0.75*10 - 7) / 0.25 = 2
	assert.Equal(t, 2, p.ClassesNeeded)

	p, err = svc.Projection(ctx, "u1", "a1", floatPtr(100))
	require.NoError(t, err)
	assert.False(t, p.Reachable)

	for _, goal := range []float64{0, -5, 100.5, math.NaN(), math.Inf(1)} {
		_, err = svc.Projection(ctx, "u1", "a1", floatPtr(goal))
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "goal %v", goal)
	}
}

func TestAttendanceServiceDelete(t *testing.T) {
	repo := newMemAttendanceRepo(models.AttendanceSubject{ID: "a1", UserID: "u1", Name: "Physics"})
	svc, _ := newAttendanceServiceForTest(repo, &memGoalRepo{})

	require.NoError(t, svc.Delete(context.Background(), "u1", "a1"))
	err := svc.Delete(context.Background(), "u1", "a1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
