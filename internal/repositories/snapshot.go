package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// SnapshotRepository persists [models.Snapshot] rows. Snapshots are never updated.
type SnapshotRepository struct {
	db    Connection
	users *UserRepository
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, users: NewUserRepository(db)}
}

const snapshotColumns = `id, user_id, playlist_id, playlist_name, track_uris, track_count, reason, trigger_description, created_at`

// CreateSnapshot inserts a snapshot with a generated ID. TrackCount is derived from TrackURIs.
func (r *SnapshotRepository) CreateSnapshot(ctx context.Context, s *models.Snapshot) error {
	s.ID = shared.GenerateID()
	s.TrackCount = len(s.TrackURIs)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}

	query := r.db.Rebind(`INSERT INTO snapshots (` + snapshotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.PlaylistID, s.PlaylistName, s.TrackURIs, s.TrackCount, s.Reason, s.TriggerDescription, s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// IsAutoSnapshotEnabled reads the owning user's preference.
func (r *SnapshotRepository) IsAutoSnapshotEnabled(ctx context.Context, userID string) (bool, error) {
	return r.users.IsAutoSnapshotEnabled(ctx, userID)
}

// Get retrieves a snapshot by ID.
func (r *SnapshotRepository) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	var s models.Snapshot
	query := r.db.Rebind(`SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`)
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, notFound(err, "snapshot", id)
	}
	return &s, nil
}

// List returns the user's snapshots newest first, optionally restricted to one playlist.
func (r *SnapshotRepository) List(ctx context.Context, userID, playlistID string, limit int) ([]*models.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE user_id = ?`
	args := []any{userID}
	if playlistID != "" {
		query += ` AND playlist_id = ?`
		args = append(args, playlistID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var snapshots []*models.Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	return snapshots, nil
}
