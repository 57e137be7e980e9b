package models

import "time"

// Defaults used when a user has never saved goal settings.
const (
	DefaultGPAGoal        = 8.0
	DefaultMarksPerCredit = 25.0
)

// GoalSettings is the per-user configuration consumed by the projectors.
type GoalSettings struct {
	UserID                string    `db:"user_id" json:"user_id"`
	AttendanceGoalPercent float64   `db:"attendance_goal_percent" json:"attendance_goal_percent"`
	GPAGoal               float64   `db:"gpa_goal" json:"gpa_goal"`
	MarksPerCredit        float64   `db:"marks_per_credit" json:"marks_per_credit"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultGoalSettings returns {75, 8.0, 25} for the given user.
func DefaultGoalSettings(userID string) GoalSettings {
	return GoalSettings{
		UserID:                userID,
		AttendanceGoalPercent: DefaultAttendanceGoal,
		GPAGoal:               DefaultGPAGoal,
		MarksPerCredit:        DefaultMarksPerCredit,
	}
}

// WithDefaults fills zero values from the supplied fallback.
func (g GoalSettings) WithDefaults(fallback GoalSettings) GoalSettings {
	if g.AttendanceGoalPercent <= 0 {
		g.AttendanceGoalPercent = fallback.AttendanceGoalPercent
	}
	if g.GPAGoal <= 0 {
		g.GPAGoal = fallback.GPAGoal
	}
	if g.MarksPerCredit <= 0 {
		g.MarksPerCredit = fallback.MarksPerCredit
	}
	return g
}
