package dto

import (
	"github.com/noah-isme/academic-tracker-api/internal/analytics"
	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// CreateAttendanceSubjectRequest adds a subject to the attendance tracker.
type CreateAttendanceSubjectRequest struct {
	Name           string   `json:"name" validate:"required,max=120"`
	Attended       int      `json:"attended" validate:"gte=0,ltefield=Happened"`
	Happened       int      `json:"happened" validate:"gte=0"`
	GoalPercentage *float64 `json:"goal_percentage,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// UpdateAttendanceSubjectRequest edits a subject. Nil fields are left as is;
// ClearGoal resets the subject to the default goal.
type UpdateAttendanceSubjectRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Attended       *int     `json:"attended,omitempty" validate:"omitempty,gte=0"`
	Happened       *int     `json:"happened,omitempty" validate:"omitempty,gte=0"`
	GoalPercentage *float64 `json:"goal_percentage,omitempty" validate:"omitempty,gt=0,lte=100"`
	ClearGoal      bool     `json:"clear_goal,omitempty"`
}

// MarkAttendanceRequest records one class for a subject.
type MarkAttendanceRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

// AttendanceSubjectResponse is a subject together with its projection.
type AttendanceSubjectResponse struct {
	models.AttendanceSubject
	Projection analytics.AttendanceProjection `json:"projection"`
}
