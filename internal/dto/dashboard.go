package dto

import (
	"time"

	"github.com/noah-isme/academic-tracker-api/internal/analytics"
)

// AttendanceStatus is one attendance row on the dashboard.
type AttendanceStatus struct {
	SubjectID     string  `json:"subject_id"`
	Subject       string  `json:"subject"`
	Percentage    float64 `json:"percentage"`
	Goal          float64 `json:"goal"`
	MeetsGoal     bool    `json:"meets_goal"`
	ClassesNeeded int     `json:"classes_needed"`
	Reachable     bool    `json:"reachable"`
	CanMiss       int     `json:"classes_can_miss"`
}

// MarksStatus is one marks row on the dashboard.
type MarksStatus struct {
	SubjectID   string                   `json:"subject_id"`
	Subject     string                   `json:"subject"`
	Percentage  float64                  `json:"percentage"`
	GradePoint  float64                  `json:"grade_point"`
	LetterGrade string                   `json:"letter_grade"`
	Credits     int                      `json:"credits"`
	Goal        analytics.GoalProjection `json:"goal"`
}

// DashboardResponse is the aggregated payload behind GET /dashboard.
type DashboardResponse struct {
	Summary     analytics.Summary  `json:"summary"`
	Attendance  []AttendanceStatus `json:"attendance"`
	Marks       []MarksStatus      `json:"marks"`
	Recent      []analytics.Period `json:"recent_attendance"`
	GeneratedAt time.Time          `json:"generated_at"`
}
