package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ScheduleRepository persists [models.Schedule] rows.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new [ScheduleRepository] with the given database connection
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, user_id, job_type, target_playlist_id, target_playlist_name, source_playlist_ids,
	algorithm_name, algorithm_params, rotation_mode, rotation_count, cron_expr, enabled,
	last_run_at, last_status, last_error, created_at, updated_at`

// Create validates and inserts a schedule. New schedules start as never run.
func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ts := now()
	s.ID = shared.GenerateID()
	s.CreatedAt, s.UpdatedAt = ts, ts
	s.LastRunAt = nil
	s.LastStatus = models.RunNeverRun
	s.LastError = ""
	if s.SourcePlaylistIDs == nil {
		s.SourcePlaylistIDs = models.StringList{}
	}
	if s.AlgorithmParams == nil {
		s.AlgorithmParams = models.Params{}
	}

	query := `INSERT INTO schedules (` + scheduleColumns + `) VALUES (
		:id, :user_id, :job_type, :target_playlist_id, :target_playlist_name, :source_playlist_ids,
		:algorithm_name, :algorithm_params, :rotation_mode, :rotation_count, :cron_expr, :enabled,
		:last_run_at, :last_status, :last_error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

// Get retrieves a schedule by ID.
func (r *ScheduleRepository) Get(ctx context.Context, id string) (*models.Schedule, error) {
	var s models.Schedule
	query := r.db.Rebind(`SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`)
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, notFound(err, "schedule", id)
	}
	return &s, nil
}

// List returns the user's schedules, or every schedule when userID is empty.
func (r *ScheduleRepository) List(ctx context.Context, userID string) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var schedules []*models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	return schedules, nil
}

// ListEnabled returns enabled schedules that carry a cron expression.
func (r *ScheduleRepository) ListEnabled(ctx context.Context) ([]*models.Schedule, error) {
	query := r.db.Rebind(`SELECT ` + scheduleColumns + ` FROM schedules
		WHERE enabled = ? AND cron_expr <> '' ORDER BY created_at ASC, id ASC`)

	var schedules []*models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, true); err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	return schedules, nil
}

// SetEnabled enables or disables a schedule.
func (r *ScheduleRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query := r.db.Rebind(`UPDATE schedules SET enabled = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, enabled, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return expectRows(result, "schedule", id)
}

// UpdateLastRun records the outcome of the latest run in one statement.
func (r *ScheduleRepository) UpdateLastRun(ctx context.Context, id string, at time.Time, status models.RunStatus, lastError string) error {
	query := r.db.Rebind(`UPDATE schedules SET last_run_at = ?, last_status = ?, last_error = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, at.UTC(), status, lastError, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update schedule last run: %w", err)
	}
	return expectRows(result, "schedule", id)
}

// Delete removes a schedule and its execution history in one transaction.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM executions WHERE schedule_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete execution history: %w", err)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM schedules WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if err := expectRows(result, "schedule", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
