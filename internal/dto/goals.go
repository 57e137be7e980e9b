package dto

// UpdateGoalSettingsRequest replaces the caller's goal settings. Omitted
// fields keep their current value.
type UpdateGoalSettingsRequest struct {
	AttendanceGoalPercent *float64 `json:"attendance_goal_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
	GPAGoal               *float64 `json:"gpa_goal,omitempty" validate:"omitempty,gt=0,lte=10"`
	MarksPerCredit        *float64 `json:"marks_per_credit,omitempty" validate:"omitempty,gt=0"`
}
