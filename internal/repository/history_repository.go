package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// HistoryRepository reads the append-only attendance and marks logs.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AttendanceHistory returns attendance records matching the filter, oldest first.
func (r *HistoryRepository) AttendanceHistory(ctx context.Context, filter models.HistoryFilter) ([]models.AttendanceRecord, error) {
	where, args := historyConditions(filter)
	query := `SELECT id, user_id, subject_id, subject_name, attended, happened, created_at FROM attendance_records WHERE ` +
		where + ` ORDER BY created_at ASC`
	records := make([]models.AttendanceRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return records, nil
}

// MarksHistory returns marks records matching the filter, oldest first.
func (r *HistoryRepository) MarksHistory(ctx context.Context, filter models.HistoryFilter) ([]models.MarksRecord, error) {
	where, args := historyConditions(filter)
	query := `SELECT id, user_id, subject_id, subject_name, exam_name, scored_marks, total_marks, created_at FROM marks_records WHERE ` +
		where + ` ORDER BY created_at ASC`
	records := make([]models.MarksRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("marks history: %w", err)
	}
	return records, nil
}

func historyConditions(filter models.HistoryFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}
