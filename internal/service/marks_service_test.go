package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

func newMarksServiceForTest(repo *memMarksRepo) (*MarksService, *stubCacheRepo) {
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	goals := NewGoalSettingsService(&memGoalRepo{}, models.GoalSettings{}, cache, nil, zap.NewNop())
	svc := NewMarksService(repo, goals, cache, NewMetricsService(), nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC) }
	return svc, cacheRepo
}

func TestMarksServiceCreateAndAddExam(t *testing.T) {
	repo := newMemMarksRepo()
	svc, cacheRepo := newMarksServiceForTest(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", dto.CreateMarksSubjectRequest{SubjectName: " Algebra ", Credits: 4, MaxExams: 3})
	require.NoError(t, err)
	assert.Equal(t, "Algebra", created.SubjectName)
	assert.Equal(t, 3, created.RemainingExams)
	assert.Equal(t, "F", created.LetterGrade)

	resp, err := svc.AddExam(ctx, "u1", created.ID, dto.AddExamRequest{ExamName: "Midterm", ScoredMarks: 40, TotalMarks: 50})
	require.NoError(t, err)
	assert.Equal(t, 40.0, resp.TotalScoredMarks)
	assert.Equal(t, 50.0, resp.TotalMaxMarks)
	assert.Equal(t, 80.0, resp.Percentage)
	assert.Equal(t, 9.0, resp.GradePoint)
	assert.Equal(t, "A+", resp.LetterGrade)
	assert.Equal(t, 2, resp.RemainingExams)

	// ceiling 4*25 = 100, target 70, need 30 of the remaining 50
	assert.Equal(t, analytics.GoalAchievable, resp.Goal.Fixed.Status)
	assert.Equal(t, 60, resp.Goal.Fixed.DisplayPercentage)
	assert.Equal(t, 70.0, resp.Goal.GPA.TargetPercentage)

	require.Len(t, repo.records, 1)
	assert.Equal(t, "Midterm", repo.records[0].ExamName)
	assert.Equal(t, "Algebra", repo.records[0].Subject())
	assert.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), repo.records[0].Timestamp)
	assert.Contains(t, cacheRepo.deleted, "tracker:u1:*")
}

func TestMarksServiceAddExamValidation(t *testing.T) {
	repo := newMemMarksRepo(models.MarksSubject{ID: "m1", UserID: "u1", SubjectName: "Algebra", Credits: 4, MaxExams: 1})
	svc, _ := newMarksServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.AddExam(ctx, "u1", "m1", dto.AddExamRequest{ExamName: "Quiz", ScoredMarks: 60, TotalMarks: 50})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.AddExam(ctx, "u1", "m1", dto.AddExamRequest{ExamName: "Quiz", ScoredMarks: 20, TotalMarks: 50})
	require.NoError(t, err)

	_, err = svc.AddExam(ctx, "u1", "m1", dto.AddExamRequest{ExamName: "Final", ScoredMarks: 20, TotalMarks: 50})
	assert.True(t, appErrors.Is(err, appErrors.ErrExamLimitReached))
	assert.Len(t, repo.records, 1)

	_, err = svc.AddExam(ctx, "u2", "m1", dto.AddExamRequest{ExamName: "Final", ScoredMarks: 20, TotalMarks: 50})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestMarksServiceRemoveExamKeepsHistory(t *testing.T) {
	repo := newMemMarksRepo(models.MarksSubject{ID: "m1", UserID: "u1", SubjectName: "Algebra", Credits: 4, MaxExams: 3})
	svc, _ := newMarksServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.AddExam(ctx, "u1", "m1", dto.AddExamRequest{ExamName: "Quiz", ScoredMarks: 10, TotalMarks: 20})
	require.NoError(t, err)
	_, err = svc.AddExam(ctx, "u1", "m1", dto.AddExamRequest{ExamName: "Midterm", ScoredMarks: 30, TotalMarks: 30})
	require.NoError(t, err)

	resp, err := svc.RemoveExam(ctx, "u1", "m1", 0)
	require.NoError(t, err)
	require.Len(t, resp.Exams, 1)
	assert.Equal(t, "Midterm", resp.Exams[0].Name)
	assert.Equal(t, 100.0, resp.Percentage)
	assert.Equal(t, "O", resp.LetterGrade)
	assert.Len(t, repo.records, 2)

	_, err = svc.RemoveExam(ctx, "u1", "m1", 5)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestMarksServiceGoalAnalysis(t *testing.T) {
	subject := models.MarksSubject{
		ID: "m1", UserID: "u1", SubjectName: "Algebra", Credits: 4, MaxExams: 3,
		Exams: models.ExamList{{Name: "A", ScoredMarks: 40, TotalMarks: 50}, {Name: "B", ScoredMarks: 45, TotalMarks: 50}},
	}
	analytics.ApplyExamTotals(&subject)
	svc, _ := newMarksServiceForTest(newMemMarksRepo(subject))
	ctx := context.Background()

	analysis, err := svc.GoalAnalysis(ctx, "u1", "m1", dto.GoalQuery{})
	require.NoError(t, err)
	assert.Nil(t, analysis.Custom)
	assert.Equal(t, analytics.GoalMaintaining, analysis.Fixed.Status)

	analysis, err = svc.GoalAnalysis(ctx, "u1", "m1", dto.GoalQuery{TargetPercentage: floatPtr(90)})
	require.NoError(t, err)
	require.NotNil(t, analysis.Custom)
	assert.Equal(t, analytics.GoalChallenging, analysis.Custom.Status)

	analysis, err = svc.GoalAnalysis(ctx, "u1", "m1", dto.GoalQuery{TargetPercentage: floatPtr(90), TargetGPA: floatPtr(6)})
	require.NoError(t, err)
	require.NotNil(t, analysis.Custom)
	assert.Equal(t, 50.0, analysis.Custom.TargetPercentage)
	require.NotNil(t, analysis.Custom.TargetGPA)
	assert.Equal(t, 6.0, *analysis.Custom.TargetGPA)

	_, err = svc.GoalAnalysis(ctx, "u1", "m1", dto.GoalQuery{TargetGPA: floatPtr(11)})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestMarksServiceListAndDelete(t *testing.T) {
	repo := newMemMarksRepo(
		models.MarksSubject{ID: "m1", UserID: "u1", SubjectName: "Physics", Credits: 3, MaxExams: 2},
		models.MarksSubject{ID: "m2", UserID: "u1", SubjectName: "Algebra", Credits: 4, MaxExams: 2},
		models.MarksSubject{ID: "m3", UserID: "u2", SubjectName: "Biology", Credits: 4, MaxExams: 2},
	)
	svc, _ := newMarksServiceForTest(repo)
	ctx := context.Background()

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Algebra", items[0].SubjectName)

	require.NoError(t, svc.Delete(ctx, "u1", "m1"))
	err = svc.Delete(ctx, "u1", "m3")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
