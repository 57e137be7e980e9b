// Package analytics holds the pure numeric core of the tracker: grade bands,
// attendance and goal projections, period bucketing and summaries. Nothing here
// performs I/O or returns errors; degenerate inputs collapse to zero values or
// explicit status labels.
package analytics

import "github.com/noah-isme/academic-tracker-api/internal/models"

type band struct {
	min    float64
	point  float64
	letter string
}

// bands are ordered from the highest threshold down; the first match wins.
var bands = []band{
	{min: 90, point: 10, letter: "O"},
	{min: 80, point: 9, letter: "A+"},
	{min: 70, point: 8, letter: "A"},
	{min: 60, point: 7, letter: "B+"},
	{min: 50, point: 6, letter: "B"},
	{min: 45, point: 5, letter: "C"},
	{min: 40, point: 4, letter: "P"},
}

// GradePoint maps a percentage onto the 10-point scale.
func GradePoint(percentage float64) float64 {
	for _, b := range bands {
		if percentage >= b.min {
			return b.point
		}
	}
	return 0
}

// LetterGrade returns the band label for a percentage.
func LetterGrade(percentage float64) string {
	for _, b := range bands {
		if percentage >= b.min {
			return b.letter
		}
	}
	return "F"
}

// PercentageForGPA returns the lowest percentage whose band yields at least gpa.
func PercentageForGPA(gpa float64) float64 {
	for _, b := range bands {
		if gpa >= b.point {
			return b.min
		}
	}
	return 0
}

// ApplyExamTotals recomputes the derived fields of a marks snapshot from its exams.
func ApplyExamTotals(subject *models.MarksSubject) {
	if subject == nil {
		return
	}
	var scored, max float64
	for _, exam := range subject.Exams {
		scored += exam.ScoredMarks
		max += exam.TotalMarks
	}
	subject.TotalScoredMarks = scored
	subject.TotalMaxMarks = max
	subject.Percentage = percentOf(scored, max)
	subject.GradePoint = GradePoint(subject.Percentage)
}

func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
