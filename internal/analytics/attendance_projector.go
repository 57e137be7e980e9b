package analytics

import (
	"math"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// epsilon absorbs float noise such as 0.7*10 = 7.000000000000001.
const epsilon = 1e-9

// AttendanceProjection describes where a subject stands against an attendance goal.
type AttendanceProjection struct {
	Attended          int     `json:"attended"`
	Happened          int     `json:"happened"`
	Goal              float64 `json:"goal"`
	CurrentPercentage float64 `json:"current_percentage"`
	DisplayPercentage float64 `json:"display_percentage"`
	MeetsGoal         bool    `json:"meets_goal"`
	ClassesNeeded     int     `json:"classes_needed"`
	Reachable         bool    `json:"reachable"`
	ClassesCanMiss    int     `json:"classes_can_miss"`
}

// ProjectAttendance computes the current percentage, the consecutive classes that
// must be attended to reach goal, and the classes that can be skipped while
// staying at or above it. A goal of 100% that is not already met is reported as
// unreachable instead of dividing by zero.
func ProjectAttendance(attended, happened int, goal float64) AttendanceProjection {
	if attended < 0 {
		attended = 0
	}
	if happened < 0 {
		happened = 0
	}
	goal = clampGoal(goal)

	p := AttendanceProjection{
		Attended:  attended,
		Happened:  happened,
		Goal:      goal,
		Reachable: true,
		MeetsGoal: true,
	}
	if happened == 0 {
		return p
	}

	a := float64(attended)
	h := float64(happened)
	g := goal / 100

	p.CurrentPercentage = a / h * 100
	p.DisplayPercentage = round1(p.CurrentPercentage)
	p.MeetsGoal = p.CurrentPercentage+epsilon >= goal

	if !p.MeetsGoal {
		if g >= 1 {
			p.Reachable = false
		} else {
			p.ClassesNeeded = int(math.Ceil((g*h-a)/(1-g) - epsilon))
			if p.ClassesNeeded < 0 {
				p.ClassesNeeded = 0
			}
		}
	}

	canMiss := int(math.Floor(a - g*h + epsilon))
	if canMiss > 0 {
		p.ClassesCanMiss = canMiss
	}
	return p
}

// NeededClasses applies the subject's own goal, or fallback when it has none.
// The boolean is false when no number of classes can reach the goal.
func NeededClasses(subject models.AttendanceSubject, fallback float64) (int, bool) {
	p := ProjectAttendance(subject.Attended, subject.Happened, subject.Goal(fallback))
	return p.ClassesNeeded, p.Reachable
}

// ProjectSubject is ProjectAttendance for a stored subject.
func ProjectSubject(subject models.AttendanceSubject, fallback float64) AttendanceProjection {
	return ProjectAttendance(subject.Attended, subject.Happened, subject.Goal(fallback))
}

func clampGoal(goal float64) float64 {
	switch {
	case math.IsNaN(goal) || goal < 0:
		return 0
	case goal > 100:
		return 100
	default:
		return goal
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
