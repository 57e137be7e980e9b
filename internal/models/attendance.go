package models

import (
	"strings"
	"time"
)

// DefaultAttendanceGoal applies to subjects without a custom goal.
const DefaultAttendanceGoal = 75.0

// UnknownSubject labels history rows whose subject name was never stored.
const UnknownSubject = "Unknown"

// AttendanceSubject is the live attendance snapshot for one subject.
type AttendanceSubject struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Name           string    `db:"name" json:"name"`
	Attended       int       `db:"attended" json:"attended"`
	Happened       int       `db:"happened" json:"happened"`
	GoalPercentage *float64  `db:"goal_percentage" json:"goal_percentage,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Goal returns the subject's custom goal or the fallback when none is set.
func (s AttendanceSubject) Goal(fallback float64) float64 {
	if s.GoalPercentage != nil {
		return *s.GoalPercentage
	}
	if fallback <= 0 {
		return DefaultAttendanceGoal
	}
	return fallback
}

// AttendanceRecord is an append-only attendance history event. Happened and
// SubjectName are nullable because older rows predate those columns.
type AttendanceRecord struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName *string   `db:"subject_name" json:"subject_name,omitempty"`
	Attended    bool      `db:"attended" json:"attended"`
	Happened    *bool     `db:"happened" json:"happened,omitempty"`
	Timestamp   time.Time `db:"created_at" json:"timestamp"`
}

// DidHappen treats a missing flag as a held class.
func (r AttendanceRecord) DidHappen() bool {
	return r.Happened == nil || *r.Happened
}

// Subject returns the stored subject name or UnknownSubject.
func (r AttendanceRecord) Subject() string {
	return subjectOrUnknown(r.SubjectName)
}

// HistoryFilter bounds history queries. Nil bounds are open.
type HistoryFilter struct {
	UserID    string
	SubjectID string
	From      *time.Time
	To        *time.Time
}

func subjectOrUnknown(name *string) string {
	if name == nil {
		return UnknownSubject
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return UnknownSubject
	}
	return trimmed
}
