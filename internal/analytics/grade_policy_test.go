package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

func TestGradePointBands(t *testing.T) {
	cases := []struct {
		percentage float64
		want       float64
	}{
		{100, 10}, {90, 10}, {89.99, 9}, {80, 9}, {70, 8}, {69.9, 7}, {60, 7},
		{50, 6}, {45, 5}, {44.9, 4}, {40, 4}, {39.9, 0}, {0, 0}, {-5, 0}, {150, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GradePoint(tc.percentage), "percentage %v", tc.percentage)
	}
	assert.Equal(t, 0.0, GradePoint(math.NaN()))
}

func TestGradePointIsMonotonic(t *testing.T) {
	prev := GradePoint(-1)
	for p := 0.0; p <= 100; p += 0.5 {
		gp := GradePoint(p)
		assert.GreaterOrEqual(t, gp, prev, "grade point dropped at %v", p)
		prev = gp
	}
}

func TestPercentageForGPA(t *testing.T) {
	assert.Equal(t, 90.0, PercentageForGPA(10))
	assert.Equal(t, 70.0, PercentageForGPA(8))
	assert.Equal(t, 60.0, PercentageForGPA(7.5))
	assert.Equal(t, 45.0, PercentageForGPA(5))
	assert.Equal(t, 40.0, PercentageForGPA(4))
	assert.Equal(t, 0.0, PercentageForGPA(3.9))

	for _, gpa := range []float64{4, 5, 6, 7, 8, 9, 10} {
		assert.Equal(t, gpa, GradePoint(PercentageForGPA(gpa)))
	}
}

func TestLetterGrade(t *testing.T) {
	assert.Equal(t, "O", LetterGrade(95))
	assert.Equal(t, "A", LetterGrade(72))
	assert.Equal(t, "C", LetterGrade(46))
	assert.Equal(t, "F", LetterGrade(12))
}

func TestApplyExamTotals(t *testing.T) {
	subject := &models.MarksSubject{Exams: models.ExamList{
		{Name: "Mid", ScoredMarks: 18, TotalMarks: 25},
		{Name: "Quiz", ScoredMarks: 9, TotalMarks: 10},
	}}
	ApplyExamTotals(subject)

	assert.Equal(t, 27.0, subject.TotalScoredMarks)
	assert.Equal(t, 35.0, subject.TotalMaxMarks)
	assert.InDelta(t, 77.142, subject.Percentage, 0.001)
	assert.Equal(t, 8.0, subject.GradePoint)

	empty := &models.MarksSubject{GradePoint: 9, Percentage: 85}
	ApplyExamTotals(empty)
	assert.Zero(t, empty.Percentage)
	assert.Zero(t, empty.GradePoint)

	ApplyExamTotals(nil)
}
