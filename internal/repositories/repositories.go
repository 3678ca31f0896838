package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/desertthunder/plx/internal/shared"
)

// Connection is the subset of [sqlx.DB] the repositories use.
type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Store groups every repository over one database handle.
type Store struct {
	Users      *UserRepository
	Schedules  *ScheduleRepository
	Executions *ExecutionRepository
	Pairs      *ArchivePairRepository
	Snapshots  *SnapshotRepository
	Activity   *ActivityRepository
}

// NewStore creates a [Store] backed by db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		Users:      NewUserRepository(db),
		Schedules:  NewScheduleRepository(db),
		Executions: NewExecutionRepository(db),
		Pairs:      NewArchivePairRepository(db),
		Snapshots:  NewSnapshotRepository(db),
		Activity:   NewActivityRepository(db),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

// notFound maps [sql.ErrNoRows] to [shared.ErrNotFound].
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, shared.ErrNotFound)
	}
	return fmt.Errorf("failed to query %s: %w", what, err)
}

// expectRows returns [shared.ErrNotFound] when result touched no rows.
func expectRows(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", what, id, shared.ErrNotFound)
	}
	return nil
}
