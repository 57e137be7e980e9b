package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Exam is one recorded assessment inside a marks subject.
type Exam struct {
	Name        string    `json:"exam_name"`
	ScoredMarks float64   `json:"scored_marks"`
	TotalMarks  float64   `json:"total_marks"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ExamList is persisted as a JSONB array.
type ExamList []Exam

// Value marshals the exam list for persistence.
func (l ExamList) Value() (driver.Value, error) {
	if l == nil {
		l = ExamList{}
	}
	data, err := json.Marshal([]Exam(l))
	if err != nil {
		return nil, fmt.Errorf("marshal exams: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB array into the list.
func (l *ExamList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = ExamList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExamList", value)
	}
	if len(data) == 0 {
		*l = ExamList{}
		return nil
	}
	var exams []Exam
	if err := json.Unmarshal(data, &exams); err != nil {
		return fmt.Errorf("unmarshal exams: %w", err)
	}
	*l = exams
	return nil
}

// MarksSubject is the live marks snapshot for one subject. The totals,
// percentage and grade point are derived from Exams and stored as a unit.
type MarksSubject struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	SubjectName      string    `db:"subject_name" json:"subject_name"`
	Credits          int       `db:"credits" json:"credits"`
	MaxExams         int       `db:"max_exams" json:"max_exams"`
	Exams            ExamList  `db:"exams" json:"exams"`
	TotalScoredMarks float64   `db:"total_scored_marks" json:"total_scored_marks"`
	TotalMaxMarks    float64   `db:"total_max_marks" json:"total_max_marks"`
	Percentage       float64   `db:"percentage" json:"percentage"`
	GradePoint       float64   `db:"grade_point" json:"grade_point"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// RemainingExams is how many exams can still be recorded.
func (s MarksSubject) RemainingExams() int {
	return s.MaxExams - len(s.Exams)
}

// MarksRecord is an append-only log entry written when an exam is added.
// Rows are not touched when the exam is later removed from the subject.
type MarksRecord struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName *string   `db:"subject_name" json:"subject_name,omitempty"`
	ExamName    string    `db:"exam_name" json:"exam_name"`
	ScoredMarks float64   `db:"scored_marks" json:"scored_marks"`
	TotalMarks  float64   `db:"total_marks" json:"total_marks"`
	Timestamp   time.Time `db:"created_at" json:"timestamp"`
}

// Subject returns the stored subject name or UnknownSubject.
func (r MarksRecord) Subject() string {
	return subjectOrUnknown(r.SubjectName)
}
