package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/pkg/database"
)

// ErrNoHistory is returned by UndoLatest when the subject has no records left.
var ErrNoHistory = errors.New("no attendance history for subject")

const attendanceSubjectColumns = `id, user_id, name, attended, happened, goal_percentage, created_at, updated_at`

// AttendanceSubjectRepository persists attendance snapshots and their history.
type AttendanceSubjectRepository struct {
	db *sqlx.DB
}

// NewAttendanceSubjectRepository constructs the repository.
func NewAttendanceSubjectRepository(db *sqlx.DB) *AttendanceSubjectRepository {
	return &AttendanceSubjectRepository{db: db}
}

// List returns every attendance subject owned by the user ordered by name.
func (r *AttendanceSubjectRepository) List(ctx context.Context, userID string) ([]models.AttendanceSubject, error) {
	query := `SELECT ` + attendanceSubjectColumns + ` FROM attendance_subjects WHERE user_id = $1 ORDER BY name ASC`
	subjects := make([]models.AttendanceSubject, 0)
	if err := r.db.SelectContext(ctx, &subjects, query, userID); err != nil {
		return nil, fmt.Errorf("list attendance subjects: %w", err)
	}
	return subjects, nil
}

// Get returns one subject scoped to its owner.
func (r *AttendanceSubjectRepository) Get(ctx context.Context, userID, id string) (*models.AttendanceSubject, error) {
	query := `SELECT ` + attendanceSubjectColumns + ` FROM attendance_subjects WHERE id = $1 AND user_id = $2`
	var subject models.AttendanceSubject
	if err := r.db.GetContext(ctx, &subject, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get attendance subject: %w", err)
	}
	return &subject, nil
}

// Create inserts a new subject.
func (r *AttendanceSubjectRepository) Create(ctx context.Context, subject *models.AttendanceSubject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO attendance_subjects (id, user_id, name, attended, happened, goal_percentage, created_at, updated_at)
VALUES (:id, :user_id, :name, :attended, :happened, :goal_percentage, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create attendance subject: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a subject.
func (r *AttendanceSubjectRepository) Update(ctx context.Context, subject *models.AttendanceSubject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendance_subjects SET name = :name, attended = :attended, happened = :happened, goal_percentage = :goal_percentage, updated_at = :updated_at
WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update attendance subject: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the subject together with its attendance history.
func (r *AttendanceSubjectRepository) Delete(ctx context.Context, userID, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE subject_id = $1 AND user_id = $2`, id, userID); err != nil {
			return fmt.Errorf("delete attendance records: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM attendance_subjects WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete attendance subject: %w", err)
		}
		return expectAffected(res)
	})
}

// RecordMark counts one held class and appends the matching history record.
func (r *AttendanceSubjectRepository) RecordMark(ctx context.Context, userID, id string, attended bool) (*models.AttendanceSubject, *models.AttendanceRecord, error) {
	increment := 0
	if attended {
		increment = 1
	}
	now := time.Now().UTC()

	var subject models.AttendanceSubject
	var record models.AttendanceRecord
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `UPDATE attendance_subjects SET attended = attended + $3, happened = happened + 1, updated_at = $4
WHERE id = $1 AND user_id = $2 RETURNING ` + attendanceSubjectColumns
		if err := tx.GetContext(ctx, &subject, query, id, userID, increment, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("increment attendance: %w", err)
		}

		happened := true
		name := subject.Name
		record = models.AttendanceRecord{
			ID:          uuid.NewString(),
			UserID:      userID,
			SubjectID:   id,
			SubjectName: &name,
			Attended:    attended,
			Happened:    &happened,
			Timestamp:   now,
		}
		const insert = `INSERT INTO attendance_records (id, user_id, subject_id, subject_name, attended, happened, created_at)
VALUES (:id, :user_id, :subject_id, :subject_name, :attended, :happened, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, record); err != nil {
			return fmt.Errorf("append attendance record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &subject, &record, nil
}

// UndoLatest deletes the most recent history record of the subject and reverses
// its effect on the counters. The subject row is locked first so a concurrent
// RecordMark either commits before the latest record is picked or waits.
func (r *AttendanceSubjectRepository) UndoLatest(ctx context.Context, userID, id string) (*models.AttendanceSubject, error) {
	var subject models.AttendanceSubject
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var lockedID string
		const lock = `SELECT id FROM attendance_subjects WHERE id = $1 AND user_id = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &lockedID, lock, id, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock attendance subject: %w", err)
		}

		var latest models.AttendanceRecord
		const pick = `SELECT id, attended, happened FROM attendance_records
WHERE user_id = $1 AND subject_id = $2 ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE`
		if err := tx.GetContext(ctx, &latest, pick, userID, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoHistory
			}
			return fmt.Errorf("select latest attendance record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, latest.ID); err != nil {
			return fmt.Errorf("delete attendance record: %w", err)
		}

		attended, happened := 0, 0
		if latest.Attended {
			attended = 1
		}
		if latest.DidHappen() {
			happened = 1
		}
		query := `UPDATE attendance_subjects SET attended = GREATEST(attended - $3, 0), happened = GREATEST(happened - $4, 0), updated_at = $5
WHERE id = $1 AND user_id = $2 RETURNING ` + attendanceSubjectColumns
		if err := tx.GetContext(ctx, &subject, query, id, userID, attended, happened, time.Now().UTC()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("reverse attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
