package analytics

import (
	"math"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// GoalStatus labels the outcome of a marks goal projection.
type GoalStatus string

const (
	GoalAchieved    GoalStatus = "achieved"
	GoalImpossible  GoalStatus = "impossible"
	GoalMaintaining GoalStatus = "maintaining"
	GoalAchievable  GoalStatus = "achievable"
	GoalChallenging GoalStatus = "challenging"
)

// GoalInput is the snapshot a goal projection runs against.
type GoalInput struct {
	Credits        int
	MaxExams       int
	ExamsTaken     int
	TotalScored    float64
	TotalMax       float64
	MarksPerCredit float64
}

// GoalInputFromSubject builds a GoalInput from a stored marks subject.
func GoalInputFromSubject(subject models.MarksSubject, marksPerCredit float64) GoalInput {
	return GoalInput{
		Credits:        subject.Credits,
		MaxExams:       subject.MaxExams,
		ExamsTaken:     len(subject.Exams),
		TotalScored:    subject.TotalScoredMarks,
		TotalMax:       subject.TotalMaxMarks,
		MarksPerCredit: marksPerCredit,
	}
}

// GoalProjection is the result of projecting a subject towards a target.
type GoalProjection struct {
	Status             GoalStatus `json:"status"`
	TargetPercentage   float64    `json:"target_percentage"`
	TargetGPA          *float64   `json:"target_gpa,omitempty"`
	CurrentPercentage  float64    `json:"current_percentage"`
	SecuredPercentage  float64    `json:"secured_percentage"`
	Ceiling            float64    `json:"ceiling"`
	RemainingExams     int        `json:"remaining_exams"`
	RemainingCapacity  float64    `json:"remaining_capacity"`
	TargetTotal        float64    `json:"target_total"`
	MarksNeeded        float64    `json:"marks_needed"`
	RequiredPercentage float64    `json:"required_percentage"`
	DisplayPercentage  int        `json:"display_percentage"`
	HasProjection      bool       `json:"has_projection"`
}

// ProjectGoal computes what the remaining exams must yield for the subject to
// finish at target percent of its credit ceiling.
func ProjectGoal(in GoalInput, target float64) GoalProjection {
	perCredit := in.MarksPerCredit
	if perCredit <= 0 {
		perCredit = models.DefaultMarksPerCredit
	}
	ceiling := float64(in.Credits) * perCredit

	out := GoalProjection{
		TargetPercentage:  target,
		CurrentPercentage: percentOf(in.TotalScored, in.TotalMax),
		SecuredPercentage: percentOf(in.TotalScored, ceiling),
		Ceiling:           ceiling,
		RemainingExams:    in.MaxExams - in.ExamsTaken,
		TargetTotal:       target * ceiling / 100,
	}

	if out.RemainingExams <= 0 {
		out.RemainingExams = 0
		if out.CurrentPercentage+epsilon >= target {
			out.Status = GoalAchieved
		} else {
			out.Status = GoalImpossible
		}
		return out
	}

	out.HasProjection = true
	out.RemainingCapacity = ceiling - in.TotalMax
	out.MarksNeeded = math.Max(0, out.TargetTotal-in.TotalScored)
	if out.RemainingCapacity > 0 {
		out.RequiredPercentage = out.MarksNeeded / out.RemainingCapacity * 100
	}

	switch {
	case out.MarksNeeded <= epsilon:
		out.Status = GoalMaintaining
		out.RequiredPercentage = math.Min(100, math.Max(0, out.RequiredPercentage))
	case out.RemainingCapacity <= 0:
		// marks still needed with no capacity left
		out.Status = GoalChallenging
		out.HasProjection = false
		out.RequiredPercentage = 0
		out.DisplayPercentage = 0
		return out
	case out.RequiredPercentage <= 100+epsilon:
		out.Status = GoalAchievable
	default:
		out.Status = GoalChallenging
	}
	out.DisplayPercentage = ceilPercent(out.RequiredPercentage)
	return out
}

// ProjectGPAGoal converts gpa to its band threshold and projects towards it.
func ProjectGPAGoal(in GoalInput, gpa float64) GoalProjection {
	out := ProjectGoal(in, PercentageForGPA(gpa))
	out.TargetGPA = &gpa
	return out
}

// ceilPercent rounds a required percentage up for display.
func ceilPercent(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Ceil(v - epsilon))
}
