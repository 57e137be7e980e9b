package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

type stubCacheRepo struct {
	mu       sync.Mutex
	store    map[string][]byte
	deleted  []string
	getErr   error
	getCalls int
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return s.getErr
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

type memAttendanceRepo struct {
	mu       sync.Mutex
	seq      int
	subjects map[string]models.AttendanceSubject
	records  []models.AttendanceRecord
	listErr  error
	clock    time.Time
}

func newMemAttendanceRepo(subjects ...models.AttendanceSubject) *memAttendanceRepo {
	r := &memAttendanceRepo{subjects: map[string]models.AttendanceSubject{}, clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	for _, s := range subjects {
		r.subjects[s.ID] = s
	}
	return r
}

func (r *memAttendanceRepo) List(_ context.Context, userID string) ([]models.AttendanceSubject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.AttendanceSubject, 0)
	for _, s := range r.subjects {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memAttendanceRepo) Get(_ context.Context, userID, id string) (*models.AttendanceSubject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r *memAttendanceRepo) Create(_ context.Context, subject *models.AttendanceSubject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subject.ID == "" {
		r.seq++
		subject.ID = "att-" + strconv.Itoa(r.seq)
	}
	r.subjects[subject.ID] = *subject
	return nil
}

func (r *memAttendanceRepo) Update(_ context.Context, subject *models.AttendanceSubject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.subjects[subject.ID]
	if !ok || existing.UserID != subject.UserID {
		return sql.ErrNoRows
	}
	r.subjects[subject.ID] = *subject
	return nil
}

func (r *memAttendanceRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return sql.ErrNoRows
	}
	delete(r.subjects, id)
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.SubjectID != id {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

func (r *memAttendanceRepo) RecordMark(_ context.Context, userID, id string, attended bool) (*models.AttendanceSubject, *models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return nil, nil, sql.ErrNoRows
	}
	s.Happened++
	if attended {
		s.Attended++
	}
	r.subjects[id] = s
	r.clock = r.clock.Add(time.Hour)
	happened := true
	name := s.Name
	rec := models.AttendanceRecord{
		ID:          "rec-" + strconv.Itoa(len(r.records)+1),
		UserID:      userID,
		SubjectID:   id,
		SubjectName: &name,
		Attended:    attended,
		Happened:    &happened,
		Timestamp:   r.clock,
	}
	r.records = append(r.records, rec)
	return &s, &rec, nil
}

func (r *memAttendanceRepo) UndoLatest(_ context.Context, userID, id string) (*models.AttendanceSubject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return nil, sql.ErrNoRows
	}
	latest := -1
	for i, rec := range r.records {
		if rec.SubjectID == id && (latest < 0 || !rec.Timestamp.Before(r.records[latest].Timestamp)) {
			latest = i
		}
	}
	if latest < 0 {
		return nil, repository.ErrNoHistory
	}
	rec := r.records[latest]
	r.records = append(r.records[:latest], r.records[latest+1:]...)
	if rec.DidHappen() && s.Happened > 0 {
		s.Happened--
	}
	if rec.Attended && s.Attended > 0 {
		s.Attended--
	}
	r.subjects[id] = s
	return &s, nil
}

type memMarksRepo struct {
	mu       sync.Mutex
	seq      int
	subjects map[string]models.MarksSubject
	records  []models.MarksRecord
}

func newMemMarksRepo(subjects ...models.MarksSubject) *memMarksRepo {
	r := &memMarksRepo{subjects: map[string]models.MarksSubject{}}
	for _, s := range subjects {
		r.subjects[s.ID] = s
	}
	return r
}

func (r *memMarksRepo) List(_ context.Context, userID string) ([]models.MarksSubject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MarksSubject, 0)
	for _, s := range r.subjects {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectName < out[j].SubjectName })
	return out, nil
}

func (r *memMarksRepo) Get(_ context.Context, userID, id string) (*models.MarksSubject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return nil, sql.ErrNoRows
	}
	s.Exams = append(models.ExamList{}, s.Exams...)
	return &s, nil
}

func (r *memMarksRepo) Create(_ context.Context, subject *models.MarksSubject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subject.ID == "" {
		r.seq++
		subject.ID = "marks-" + strconv.Itoa(r.seq)
	}
	r.subjects[subject.ID] = *subject
	return nil
}

func (r *memMarksRepo) MutateExams(_ context.Context, userID, id string, fn repository.ExamMutation) (*models.MarksSubject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return nil, sql.ErrNoRows
	}
	s.Exams = append(models.ExamList{}, s.Exams...)
	rec, err := fn(&s)
	if err != nil {
		return nil, err
	}
	r.subjects[id] = s
	if rec != nil {
		rec.UserID = userID
		rec.SubjectID = id
		r.records = append(r.records, *rec)
	}
	return &s, nil
}

func (r *memMarksRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok || s.UserID != userID {
		return sql.ErrNoRows
	}
	delete(r.subjects, id)
	return nil
}

type memGoalRepo struct {
	settings map[string]models.GoalSettings
	getErr   error
	upserts  int
}

func (r *memGoalRepo) Get(_ context.Context, userID string) (*models.GoalSettings, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.settings[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r *memGoalRepo) Upsert(_ context.Context, settings *models.GoalSettings) error {
	if r.settings == nil {
		r.settings = map[string]models.GoalSettings{}
	}
	r.upserts++
	r.settings[settings.UserID] = *settings
	return nil
}

type memHistory struct {
	mu         sync.Mutex
	attendance []models.AttendanceRecord
	marks      []models.MarksRecord
	calls      int
	lastFilter models.HistoryFilter
}

func (h *memHistory) AttendanceHistory(_ context.Context, filter models.HistoryFilter) ([]models.AttendanceRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.lastFilter = filter
	out := make([]models.AttendanceRecord, 0)
	for _, rec := range h.attendance {
		if rec.UserID == filter.UserID && inRange(rec.Timestamp, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (h *memHistory) MarksHistory(_ context.Context, filter models.HistoryFilter) ([]models.MarksRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.lastFilter = filter
	out := make([]models.MarksRecord, 0)
	for _, rec := range h.marks {
		if rec.UserID == filter.UserID && inRange(rec.Timestamp, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func inRange(t time.Time, filter models.HistoryFilter) bool {
	if filter.From != nil && t.Before(*filter.From) {
		return false
	}
	if filter.To != nil && t.After(*filter.To) {
		return false
	}
	return true
}

func floatPtr(v float64) *float64 { return &v }
