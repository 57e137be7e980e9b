package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// Granularity selects the bucket width used by Aggregate.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity accepts the three known values case-insensitively.
func ParseGranularity(raw string) (Granularity, bool) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(raw))); g {
	case Daily, Weekly, Monthly:
		return g, true
	}
	return "", false
}

// Event is a normalised history entry. For attendance Total is 1 and Positive
// is 1 when the class was attended; for marks they carry the exam totals.
type Event struct {
	Subject   string
	Timestamp time.Time
	Total     float64
	Positive  float64
}

// AttendanceEvents normalises attendance history. Rows for classes that did not
// happen are skipped and rows without a timestamp cannot be bucketed.
func AttendanceEvents(records []models.AttendanceRecord) []Event {
	events := make([]Event, 0, len(records))
	for _, r := range records {
		if !r.DidHappen() || r.Timestamp.IsZero() {
			continue
		}
		ev := Event{Subject: r.Subject(), Timestamp: r.Timestamp, Total: 1}
		if r.Attended {
			ev.Positive = 1
		}
		events = append(events, ev)
	}
	return events
}

// MarksEvents normalises marks history. Every exam entry counts.
func MarksEvents(records []models.MarksRecord) []Event {
	events := make([]Event, 0, len(records))
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		events = append(events, Event{
			Subject:   r.Subject(),
			Timestamp: r.Timestamp,
			Total:     r.TotalMarks,
			Positive:  r.ScoredMarks,
		})
	}
	return events
}

// SubjectBucket is the per-subject slice of a Period.
type SubjectBucket struct {
	Subject    string  `json:"subject"`
	Count      int     `json:"count"`
	Total      float64 `json:"total"`
	Positive   float64 `json:"positive"`
	Percentage float64 `json:"percentage"`
}

// Period is one time bucket of aggregated events.
type Period struct {
	Label      string          `json:"label"`
	Start      time.Time       `json:"start"`
	Count      int             `json:"count"`
	Total      float64         `json:"total"`
	Positive   float64         `json:"positive"`
	Percentage float64         `json:"percentage"`
	Subjects   []SubjectBucket `json:"subjects"`
}

// BucketLabel derives the bucket key for t in loc. Two events share a bucket
// exactly when their labels are equal.
func BucketLabel(t time.Time, g Granularity, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	switch g {
	case Weekly:
		sunday := local.AddDate(0, 0, -int(local.Weekday()))
		return fmt.Sprintf("Week of %s", sunday.Format("2006-01-02"))
	case Monthly:
		return local.Format("Jan 2006")
	default:
		return local.Format("2006-01-02")
	}
}

type accumulator struct {
	period   Period
	subjects map[string]*SubjectBucket
}

// Aggregate buckets events by g and returns the periods ordered by the earliest
// event inside each one. Labels are never used for ordering.
func Aggregate(events []Event, g Granularity, loc *time.Location) []Period {
	buckets := make(map[string]*accumulator)
	for _, ev := range events {
		label := BucketLabel(ev.Timestamp, g, loc)
		acc, ok := buckets[label]
		if !ok {
			acc = &accumulator{
				period:   Period{Label: label, Start: ev.Timestamp},
				subjects: make(map[string]*SubjectBucket),
			}
			buckets[label] = acc
		}
		if ev.Timestamp.Before(acc.period.Start) {
			acc.period.Start = ev.Timestamp
		}
		acc.period.Count++
		acc.period.Total += ev.Total
		acc.period.Positive += ev.Positive

		subject := ev.Subject
		if strings.TrimSpace(subject) == "" {
			subject = models.UnknownSubject
		}
		sb, ok := acc.subjects[subject]
		if !ok {
			sb = &SubjectBucket{Subject: subject}
			acc.subjects[subject] = sb
		}
		sb.Count++
		sb.Total += ev.Total
		sb.Positive += ev.Positive
	}

	periods := make([]Period, 0, len(buckets))
	for _, acc := range buckets {
		p := acc.period
		p.Percentage = round2(percentOf(p.Positive, p.Total))
		p.Subjects = make([]SubjectBucket, 0, len(acc.subjects))
		for _, sb := range acc.subjects {
			sb.Percentage = round2(percentOf(sb.Positive, sb.Total))
			p.Subjects = append(p.Subjects, *sb)
		}
		sort.Slice(p.Subjects, func(i, j int) bool {
			return p.Subjects[i].Subject < p.Subjects[j].Subject
		})
		periods = append(periods, p)
	}
	sort.SliceStable(periods, func(i, j int) bool {
		if periods[i].Start.Equal(periods[j].Start) {
			return periods[i].Label < periods[j].Label
		}
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods
}

// Recent returns the last n periods of an already sorted series. n <= 0 keeps all.
func Recent(periods []Period, n int) []Period {
	if n <= 0 || n >= len(periods) {
		return periods
	}
	return periods[len(periods)-n:]
}
