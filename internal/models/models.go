package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// JobType selects the operation a [Schedule] performs.
type JobType string

const (
	JobMerge           JobType = "merge"
	JobReorder         JobType = "reorder"
	JobMergeAndReorder JobType = "merge_and_reorder"
	JobRotate          JobType = "rotate"
)

// JobTypes lists every supported job type.
var JobTypes = []JobType{JobMerge, JobReorder, JobMergeAndReorder, JobRotate}

// Valid reports whether j is a known job type.
func (j JobType) Valid() bool {
	for _, known := range JobTypes {
		if j == known {
			return true
		}
	}
	return false
}

// RotationMode selects how Rotate moves tracks between a production and archive playlist.
type RotationMode string

const (
	RotationArchiveOldest RotationMode = "archive_oldest"
	RotationRefresh       RotationMode = "refresh"
	RotationSwap          RotationMode = "swap"
)

// RunStatus is the outcome of the most recent run of a [Schedule].
type RunStatus string

const (
	RunNeverRun RunStatus = "never_run"
	RunSuccess  RunStatus = "success"
	RunFailed   RunStatus = "failed"
)

// ExecutionStatus is the lifecycle state of an [ExecutionRecord].
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed
}

// SnapshotReason tags why a [Snapshot] was captured.
type SnapshotReason string

const (
	ReasonPreMerge   SnapshotReason = "pre_merge"
	ReasonPreReorder SnapshotReason = "pre_reorder"
	ReasonPreRotate  SnapshotReason = "pre_rotate"
	ReasonPreCommit  SnapshotReason = "pre_commit"
	ReasonManual     SnapshotReason = "manual"
)

// Activity types written by the engine.
const (
	ActivityRunSuccess = "schedule_run_success"
	ActivityRunFailed  = "schedule_run_failed"
)

// Track is a playlist item as returned by the playlist API.
type Track struct {
	URI     string
	ID      string
	Name    string
	Artist  string
	Album   string
	AddedAt time.Time
}

// User owns schedules and the encrypted long-lived credential used for unattended runs.
type User struct {
	ID                    string    `db:"id" json:"id"`
	DisplayName           string    `db:"display_name" json:"display_name"`
	EncryptedRefreshToken *string   `db:"encrypted_refresh_token" json:"-"`
	AutoSnapshot          bool      `db:"auto_snapshot" json:"auto_snapshot"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// HasCredential reports whether a non-empty encrypted token is stored.
func (u *User) HasCredential() bool {
	return u.EncryptedRefreshToken != nil && *u.EncryptedRefreshToken != ""
}

// Validate checks required fields.
func (u *User) Validate() error {
	if u.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	return nil
}

// Schedule is a user's standing instruction to run a job periodically.
type Schedule struct {
	ID                 string       `db:"id" json:"id"`
	UserID             string       `db:"user_id" json:"user_id"`
	JobType            JobType      `db:"job_type" json:"job_type"`
	TargetPlaylistID   string       `db:"target_playlist_id" json:"target_playlist_id"`
	TargetPlaylistName string       `db:"target_playlist_name" json:"target_playlist_name"`
	SourcePlaylistIDs  StringList   `db:"source_playlist_ids" json:"source_playlist_ids"`
	AlgorithmName      string       `db:"algorithm_name" json:"algorithm_name,omitempty"`
	AlgorithmParams    Params       `db:"algorithm_params" json:"algorithm_params,omitempty"`
	RotationMode       RotationMode `db:"rotation_mode" json:"rotation_mode,omitempty"`
	RotationCount      int          `db:"rotation_count" json:"rotation_count,omitempty"`
	CronExpr           string       `db:"cron_expr" json:"cron_expr,omitempty"`
	Enabled            bool         `db:"enabled" json:"enabled"`
	LastRunAt          *time.Time   `db:"last_run_at" json:"last_run_at,omitempty"`
	LastStatus         RunStatus    `db:"last_status" json:"last_status"`
	LastError          string       `db:"last_error" json:"last_error,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields every job needs.
//
// Unknown algorithms, unknown rotation modes and missing archive pairs are left for the run to report,
// so that they surface in the execution history.
func (s *Schedule) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if !s.JobType.Valid() {
		return fmt.Errorf("unknown job type %q", s.JobType)
	}
	if s.TargetPlaylistID == "" {
		return fmt.Errorf("target playlist id is required")
	}
	if s.JobType == JobRotate && s.RotationCount < 0 {
		return fmt.Errorf("rotation count cannot be negative")
	}
	if s.CronExpr != "" {
		if _, err := cron.ParseStandard(s.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", s.CronExpr, err)
		}
	}
	return nil
}

// ExecutionRecord is the log row for one run attempt.
type ExecutionRecord struct {
	ID           string          `db:"id" json:"id"`
	ScheduleID   string          `db:"schedule_id" json:"schedule_id"`
	StartedAt    time.Time       `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	Status       ExecutionStatus `db:"status" json:"status"`
	TracksAdded  int             `db:"tracks_added" json:"tracks_added"`
	TracksTotal  int             `db:"tracks_total" json:"tracks_total"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
}

// Duration returns how long the run took, or zero while running.
func (e *ExecutionRecord) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// ArchivePair binds a production playlist to an archive playlist for one user.
type ArchivePair struct {
	ID                     string    `db:"id" json:"id"`
	UserID                 string    `db:"user_id" json:"user_id"`
	ProductionPlaylistID   string    `db:"production_playlist_id" json:"production_playlist_id"`
	ProductionPlaylistName string    `db:"production_playlist_name" json:"production_playlist_name"`
	ArchivePlaylistID      string    `db:"archive_playlist_id" json:"archive_playlist_id"`
	ArchivePlaylistName    string    `db:"archive_playlist_name" json:"archive_playlist_name"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}

// Validate checks required fields.
func (p *ArchivePair) Validate() error {
	if p.UserID == "" || p.ProductionPlaylistID == "" || p.ArchivePlaylistID == "" {
		return fmt.Errorf("user, production and archive playlist ids are required")
	}
	if p.ProductionPlaylistID == p.ArchivePlaylistID {
		return fmt.Errorf("production and archive playlists must differ")
	}
	return nil
}

// Snapshot is an immutable capture of a playlist's track order.
type Snapshot struct {
	ID                 string         `db:"id" json:"id"`
	UserID             string         `db:"user_id" json:"user_id"`
	PlaylistID         string         `db:"playlist_id" json:"playlist_id"`
	PlaylistName       string         `db:"playlist_name" json:"playlist_name"`
	TrackURIs          StringList     `db:"track_uris" json:"track_uris"`
	TrackCount         int            `db:"track_count" json:"track_count"`
	Reason             SnapshotReason `db:"reason" json:"reason"`
	TriggerDescription string         `db:"trigger_description" json:"trigger_description"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}

// ActivityEntry is a user-facing activity log line.
type ActivityEntry struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ActivityType string    `db:"activity_type" json:"activity_type"`
	Description  string    `db:"description" json:"description"`
	Metadata     Params    `db:"metadata" json:"metadata"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StringList is a list of strings stored as a JSON array.
type StringList []string

// Value implements [driver.Valuer].
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements [sql.Scanner].
func (l *StringList) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	*l = out
	return nil
}

// Params is a free-form parameter map stored as a JSON object.
type Params map[string]any

// Value implements [driver.Valuer].
func (p Params) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements [sql.Scanner].
func (p *Params) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*p = Params{}
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode params: %w", err)
	}
	*p = out
	return nil
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", src)
	}
}
