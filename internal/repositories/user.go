package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// UserRepository persists [models.User] rows.
//
// It also serves the credential store and the auto-snapshot preference lookup.
type UserRepository struct {
	db Connection
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, display_name, encrypted_refresh_token, auto_snapshot, created_at, updated_at`

// Create inserts a new user with a generated ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ts := now()
	user.ID = shared.GenerateID()
	user.CreatedAt, user.UpdatedAt = ts, ts

	query := r.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.DisplayName, user.EncryptedRefreshToken, user.AutoSnapshot, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return users, nil
}

// Delete removes a user; schedules, pairs, snapshots and activity cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRows(result, "user", id)
}

// SetAutoSnapshot switches the user's automatic snapshot preference.
func (r *UserRepository) SetAutoSnapshot(ctx context.Context, id string, enabled bool) error {
	query := r.db.Rebind(`UPDATE users SET auto_snapshot = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, enabled, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectRows(result, "user", id)
}

// IsAutoSnapshotEnabled reports the user's snapshot preference.
func (r *UserRepository) IsAutoSnapshotEnabled(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	query := r.db.Rebind(`SELECT auto_snapshot FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &enabled, query, userID); err != nil {
		return false, notFound(err, "user", userID)
	}
	return enabled, nil
}

// GetEncryptedToken returns the stored ciphertext, or [shared.ErrNotFound] when the user has none.
func (r *UserRepository) GetEncryptedToken(ctx context.Context, userID string) (string, error) {
	var token sql.NullString
	query := r.db.Rebind(`SELECT encrypted_refresh_token FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &token, query, userID); err != nil {
		return "", notFound(err, "user", userID)
	}
	if !token.Valid || token.String == "" {
		return "", fmt.Errorf("credential for user %s: %w", userID, shared.ErrNotFound)
	}
	return token.String, nil
}

// SaveEncryptedToken replaces the stored ciphertext in a single statement.
func (r *UserRepository) SaveEncryptedToken(ctx context.Context, userID, ciphertext string) error {
	if ciphertext == "" {
		return errors.New("refusing to store an empty credential")
	}
	query := r.db.Rebind(`UPDATE users SET encrypted_refresh_token = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, ciphertext, now(), userID)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return expectRows(result, "user", userID)
}
