package dto

import (
	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// CreateMarksSubjectRequest adds a subject to the marks tracker.
type CreateMarksSubjectRequest struct {
	SubjectName string `json:"subject_name" validate:"required,max=120"`
	Credits     int    `json:"credits" validate:"required,gte=1,lte=20"`
	MaxExams    int    `json:"max_exams" validate:"required,gte=1,lte=50"`
}

// AddExamRequest appends an exam to a marks subject.
type AddExamRequest struct {
	ExamName    string  `json:"exam_name" validate:"required,max=120"`
	ScoredMarks float64 `json:"scored_marks" validate:"gte=0,ltefield=TotalMarks"`
	TotalMarks  float64 `json:"total_marks" validate:"gt=0"`
}

// GoalQuery selects an ad hoc target. TargetGPA wins when both are set.
type GoalQuery struct {
	TargetPercentage *float64 `form:"target_percentage" validate:"omitempty,gt=0,lte=100"`
	TargetGPA        *float64 `form:"target_gpa" validate:"omitempty,gt=0,lte=10"`
}

// GoalAnalysis bundles the fixed projections with an optional custom one.
type GoalAnalysis struct {
	SubjectID string                    `json:"subject_id"`
	Subject   string                    `json:"subject_name"`
	Fixed     analytics.GoalProjection  `json:"fixed_percentage"`
	GPA       analytics.GoalProjection  `json:"gpa_goal"`
	Custom    *analytics.GoalProjection `json:"custom,omitempty"`
}

// MarksSubjectResponse is a subject together with its letter grade and goal analysis.
type MarksSubjectResponse struct {
	models.MarksSubject
	LetterGrade    string       `json:"letter_grade"`
	RemainingExams int          `json:"remaining_exams"`
	Goal           GoalAnalysis `json:"goal"`
}
