package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ArchivePairRepository persists [models.ArchivePair] rows.
type ArchivePairRepository struct {
	db Connection
}

// NewArchivePairRepository creates a new [ArchivePairRepository] with the given database connection
func NewArchivePairRepository(db *sqlx.DB) *ArchivePairRepository {
	return &ArchivePairRepository{db: db}
}

const pairColumns = `id, user_id, production_playlist_id, production_playlist_name,
	archive_playlist_id, archive_playlist_name, created_at`

// Create inserts a pair. A production playlist can have at most one archive per user.
func (r *ArchivePairRepository) Create(ctx context.Context, pair *models.ArchivePair) error {
	if err := pair.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	pair.ID = shared.GenerateID()
	pair.CreatedAt = now()

	query := r.db.Rebind(`INSERT INTO archive_pairs (` + pairColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		pair.ID, pair.UserID, pair.ProductionPlaylistID, pair.ProductionPlaylistName,
		pair.ArchivePlaylistID, pair.ArchivePlaylistName, pair.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert archive pair: %w", err)
	}
	return nil
}

// GetPairForPlaylist returns the pair whose production playlist is productionPlaylistID.
func (r *ArchivePairRepository) GetPairForPlaylist(ctx context.Context, userID, productionPlaylistID string) (*models.ArchivePair, error) {
	var pair models.ArchivePair
	query := r.db.Rebind(`SELECT ` + pairColumns + ` FROM archive_pairs WHERE user_id = ? AND production_playlist_id = ?`)
	if err := r.db.GetContext(ctx, &pair, query, userID, productionPlaylistID); err != nil {
		return nil, notFound(err, "archive pair for playlist", productionPlaylistID)
	}
	return &pair, nil
}

// List returns the user's pairs.
func (r *ArchivePairRepository) List(ctx context.Context, userID string) ([]*models.ArchivePair, error) {
	var pairs []*models.ArchivePair
	query := r.db.Rebind(`SELECT ` + pairColumns + ` FROM archive_pairs WHERE user_id = ? ORDER BY created_at ASC, id ASC`)
	if err := r.db.SelectContext(ctx, &pairs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query archive pairs: %w", err)
	}
	return pairs, nil
}

// Delete removes a pair owned by userID.
func (r *ArchivePairRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM archive_pairs WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete archive pair: %w", err)
	}
	return expectRows(result, "archive pair", id)
}
