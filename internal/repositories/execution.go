package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ExecutionRepository persists [models.ExecutionRecord] rows.
//
// A record is created as running and moves to a terminal status exactly once.
type ExecutionRepository struct {
	db Connection
}

// NewExecutionRepository creates a new [ExecutionRepository] with the given database connection
func NewExecutionRepository(db *sqlx.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

const executionColumns = `id, schedule_id, started_at, completed_at, status, tracks_added, tracks_total, error_message`

// Create inserts a running record for scheduleID.
func (r *ExecutionRepository) Create(ctx context.Context, scheduleID string, startedAt time.Time) (*models.ExecutionRecord, error) {
	record := &models.ExecutionRecord{
		ID:         shared.GenerateID(),
		ScheduleID: scheduleID,
		StartedAt:  startedAt.UTC(),
		Status:     models.ExecutionRunning,
	}

	query := r.db.Rebind(`INSERT INTO executions (` + executionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.ScheduleID, record.StartedAt, nil, record.Status, 0, 0, "",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert execution: %w", err)
	}
	return record, nil
}

// Complete moves a running record to status. A record that is already terminal is left untouched and
// [shared.ErrAlreadyFinalized] is returned.
func (r *ExecutionRepository) Complete(ctx context.Context, id string, status models.ExecutionStatus, tracksAdded, tracksTotal int, errorMessage string, completedAt time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", shared.ErrInvalidInput, status)
	}

	query := r.db.Rebind(`UPDATE executions
		SET status = ?, tracks_added = ?, tracks_total = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = ?`)
	result, err := r.db.ExecContext(ctx, query,
		status, tracksAdded, tracksTotal, errorMessage, completedAt.UTC(), id, models.ExecutionRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to complete execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("execution %s: %w", id, shared.ErrAlreadyFinalized)
	}
	return nil
}

// Get retrieves an execution by ID.
func (r *ExecutionRepository) Get(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	var record models.ExecutionRecord
	query := r.db.Rebind(`SELECT ` + executionColumns + ` FROM executions WHERE id = ?`)
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, notFound(err, "execution", id)
	}
	return &record, nil
}

// ListForSchedule returns the newest records first. A limit of zero or less returns all of them.
func (r *ExecutionRepository) ListForSchedule(ctx context.Context, scheduleID string, limit int) ([]*models.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE schedule_id = ? ORDER BY started_at DESC, id DESC`
	args := []any{scheduleID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var records []*models.ExecutionRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	return records, nil
}
