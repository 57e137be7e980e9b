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

const marksSubjectColumns = `id, user_id, subject_name, credits, max_exams, exams, total_scored_marks, total_max_marks, percentage, grade_point, created_at, updated_at`

// ExamMutation edits a locked marks subject in place. A non-nil record is
// appended to the marks history in the same transaction.
type ExamMutation func(subject *models.MarksSubject) (*models.MarksRecord, error)

// MarksSubjectRepository persists marks snapshots and the marks history log.
type MarksSubjectRepository struct {
	db *sqlx.DB
}

// NewMarksSubjectRepository constructs the repository.
func NewMarksSubjectRepository(db *sqlx.DB) *MarksSubjectRepository {
	return &MarksSubjectRepository{db: db}
}

// List returns the user's marks subjects ordered by name.
func (r *MarksSubjectRepository) List(ctx context.Context, userID string) ([]models.MarksSubject, error) {
	query := `SELECT ` + marksSubjectColumns + ` FROM marks_subjects WHERE user_id = $1 ORDER BY subject_name ASC`
	subjects := make([]models.MarksSubject, 0)
	if err := r.db.SelectContext(ctx, &subjects, query, userID); err != nil {
		return nil, fmt.Errorf("list marks subjects: %w", err)
	}
	return subjects, nil
}

// Get returns one subject scoped to its owner.
func (r *MarksSubjectRepository) Get(ctx context.Context, userID, id string) (*models.MarksSubject, error) {
	query := `SELECT ` + marksSubjectColumns + ` FROM marks_subjects WHERE id = $1 AND user_id = $2`
	var subject models.MarksSubject
	if err := r.db.GetContext(ctx, &subject, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get marks subject: %w", err)
	}
	return &subject, nil
}

// Create inserts a subject with an empty exam list.
func (r *MarksSubjectRepository) Create(ctx context.Context, subject *models.MarksSubject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.Exams == nil {
		subject.Exams = models.ExamList{}
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO marks_subjects (id, user_id, subject_name, credits, max_exams, exams, total_scored_marks, total_max_marks, percentage, grade_point, created_at, updated_at)
VALUES (:id, :user_id, :subject_name, :credits, :max_exams, :exams, :total_scored_marks, :total_max_marks, :percentage, :grade_point, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create marks subject: %w", err)
	}
	return nil
}

// MutateExams locks the subject row, applies fn and persists the exam list and
// derived totals as one unit.
func (r *MarksSubjectRepository) MutateExams(ctx context.Context, userID, id string, fn ExamMutation) (*models.MarksSubject, error) {
	var subject models.MarksSubject
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `SELECT ` + marksSubjectColumns + ` FROM marks_subjects WHERE id = $1 AND user_id = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &subject, query, id, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock marks subject: %w", err)
		}

		record, err := fn(&subject)
		if err != nil {
			return err
		}

		subject.UpdatedAt = time.Now().UTC()
		const update = `UPDATE marks_subjects SET exams = :exams, total_scored_marks = :total_scored_marks, total_max_marks = :total_max_marks,
percentage = :percentage, grade_point = :grade_point, updated_at = :updated_at WHERE id = :id AND user_id = :user_id`
		if _, err := tx.NamedExecContext(ctx, update, &subject); err != nil {
			return fmt.Errorf("save exams: %w", err)
		}

		if record == nil {
			return nil
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.UserID = userID
		record.SubjectID = id
		if record.Timestamp.IsZero() {
			record.Timestamp = subject.UpdatedAt
		}
		const insert = `INSERT INTO marks_records (id, user_id, subject_id, subject_name, exam_name, scored_marks, total_marks, created_at)
VALUES (:id, :user_id, :subject_id, :subject_name, :exam_name, :scored_marks, :total_marks, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, record); err != nil {
			return fmt.Errorf("append marks record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// Delete removes the subject together with its marks history.
func (r *MarksSubjectRepository) Delete(ctx context.Context, userID, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM marks_records WHERE subject_id = $1 AND user_id = $2`, id, userID); err != nil {
			return fmt.Errorf("delete marks records: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM marks_subjects WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete marks subject: %w", err)
		}
		return expectAffected(res)
	})
}
