package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// GoalSettingsRepository stores one settings row per user.
type GoalSettingsRepository struct {
	db *sqlx.DB
}

// NewGoalSettingsRepository constructs the repository.
func NewGoalSettingsRepository(db *sqlx.DB) *GoalSettingsRepository {
	return &GoalSettingsRepository{db: db}
}

// Get returns sql.ErrNoRows when the user never saved settings.
func (r *GoalSettingsRepository) Get(ctx context.Context, userID string) (*models.GoalSettings, error) {
	const query = `SELECT user_id, attendance_goal_percent, gpa_goal, marks_per_credit, updated_at FROM goal_settings WHERE user_id = $1`
	var settings models.GoalSettings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get goal settings: %w", err)
	}
	return &settings, nil
}

// Upsert inserts or replaces the user's settings.
func (r *GoalSettingsRepository) Upsert(ctx context.Context, settings *models.GoalSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO goal_settings (user_id, attendance_goal_percent, gpa_goal, marks_per_credit, updated_at)
VALUES (:user_id, :attendance_goal_percent, :gpa_goal, :marks_per_credit, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET attendance_goal_percent = EXCLUDED.attendance_goal_percent,
gpa_goal = EXCLUDED.gpa_goal, marks_per_credit = EXCLUDED.marks_per_credit, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert goal settings: %w", err)
	}
	return nil
}
