package analytics

import "github.com/noah-isme/academic-tracker-api/internal/models"

// Summary is the cumulative view across every subject a user tracks.
type Summary struct {
	AttendanceSubjects   int     `json:"attendance_subjects"`
	MarksSubjects        int     `json:"marks_subjects"`
	TotalAttended        int     `json:"total_attended"`
	TotalHappened        int     `json:"total_happened"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	TotalScored          float64 `json:"total_scored"`
	TotalMax             float64 `json:"total_max"`
	MarksPercentage      float64 `json:"marks_percentage"`
	TotalCredits         int     `json:"total_credits"`
	WeightedGPA          float64 `json:"weighted_gpa"`
	TotalPossibleMarks   float64 `json:"total_possible_marks"`
	ProgressPercentage   float64 `json:"progress_percentage"`
}

// Summarize folds the attendance and marks snapshots into a Summary.
func Summarize(attendance []models.AttendanceSubject, marks []models.MarksSubject, marksPerCredit float64) Summary {
	if marksPerCredit <= 0 {
		marksPerCredit = models.DefaultMarksPerCredit
	}
	s := Summary{
		AttendanceSubjects: len(attendance),
		MarksSubjects:      len(marks),
	}
	for _, sub := range attendance {
		s.TotalAttended += sub.Attended
		s.TotalHappened += sub.Happened
	}
	s.AttendancePercentage = percentOf(float64(s.TotalAttended), float64(s.TotalHappened))

	for _, sub := range marks {
		s.TotalScored += sub.TotalScoredMarks
		s.TotalMax += sub.TotalMaxMarks
		s.TotalCredits += sub.Credits
		s.TotalPossibleMarks += float64(sub.Credits) * marksPerCredit
	}
	s.MarksPercentage = percentOf(s.TotalScored, s.TotalMax)
	s.WeightedGPA = WeightedGPA(marks)
	s.ProgressPercentage = percentOf(s.TotalScored, s.TotalPossibleMarks)
	return s
}

// WeightedGPA is the credit-weighted mean grade point of the subjects.
func WeightedGPA(marks []models.MarksSubject) float64 {
	var weighted float64
	var credits int
	for _, sub := range marks {
		weighted += sub.GradePoint * float64(sub.Credits)
		credits += sub.Credits
	}
	if credits == 0 {
		return 0
	}
	return weighted / float64(credits)
}
