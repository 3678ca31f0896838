package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ActivityRepository persists [models.ActivityEntry] rows.
type ActivityRepository struct {
	db Connection
}

// NewActivityRepository creates a new [ActivityRepository] with the given database connection
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, user_id, activity_type, description, metadata, created_at`

// Record appends an entry.
func (r *ActivityRepository) Record(ctx context.Context, entry *models.ActivityEntry) error {
	entry.ID = shared.GenerateID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now()
	}
	if entry.Metadata == nil {
		entry.Metadata = models.Params{}
	}

	query := r.db.Rebind(`INSERT INTO activity_log (` + activityColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.ActivityType, entry.Description, entry.Metadata, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// List returns the user's newest entries first.
func (r *ActivityRepository) List(ctx context.Context, userID string, limit int) ([]*models.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_log WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var entries []*models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	return entries, nil
}
