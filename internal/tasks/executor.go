package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plx/internal/credentials"
	"github.com/desertthunder/plx/internal/locks"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/operations"
	"github.com/desertthunder/plx/internal/retry"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
)

// DefaultErrorTextLimit caps the error text stored on execution records and schedules.
const DefaultErrorTextLimit = 1000

// ScheduleStore loads schedules and records their latest outcome.
type ScheduleStore interface {
	Get(ctx context.Context, id string) (*models.Schedule, error)
	UpdateLastRun(ctx context.Context, id string, at time.Time, status models.RunStatus, lastError string) error
}

// ExecutionStore creates and finalizes execution records.
type ExecutionStore interface {
	Create(ctx context.Context, scheduleID string, startedAt time.Time) (*models.ExecutionRecord, error)
	Complete(ctx context.Context, id string, status models.ExecutionStatus, tracksAdded, tracksTotal int, errorMessage string, completedAt time.Time) error
}

// ClientProvider resolves a user to an authenticated playlist client.
type ClientProvider interface {
	GetClient(ctx context.Context, userID string) (services.PlaylistAPI, error)
}

// ActivitySink receives user-facing activity entries. Failures are ignored.
type ActivitySink interface {
	Record(ctx context.Context, entry *models.ActivityEntry) error
}

// ExecutorOpts holds the dependencies of an [Executor].
type ExecutorOpts struct {
	Schedules      ScheduleStore
	Executions     ExecutionStore
	Clients        ClientProvider
	Activity       ActivitySink // optional
	Locks          locks.Locker // defaults to an in-process keyed mutex
	Ops            *operations.Executor
	Logger         *log.Logger
	Now            func() time.Time // defaults to time.Now
	ErrorTextLimit int              // defaults to DefaultErrorTextLimit
}

// Executor runs schedules and persists their outcome.
type Executor struct {
	schedules  ScheduleStore
	executions ExecutionStore
	clients    ClientProvider
	activity   ActivitySink
	locks      locks.Locker
	logger     *log.Logger
	now        func() time.Time
	errLimit   int
	dispatch   map[models.JobType]operations.Func
}

// NewExecutor creates an [Executor].
func NewExecutor(opts ExecutorOpts) *Executor {
	e := &Executor{
		schedules:  opts.Schedules,
		executions: opts.Executions,
		clients:    opts.Clients,
		activity:   opts.Activity,
		locks:      opts.Locks,
		logger:     opts.Logger,
		now:        opts.Now,
		errLimit:   opts.ErrorTextLimit,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	e.logger = shared.WithLogger(e.logger, "component", "executor")
	if e.locks == nil {
		e.locks = locks.NewKeyedMutex()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.errLimit <= 0 {
		e.errLimit = DefaultErrorTextLimit
	}

	ops := opts.Ops
	if ops == nil {
		ops = operations.New(operations.Deps{Logger: opts.Logger})
	}
	e.dispatch = map[models.JobType]operations.Func{
		models.JobMerge:           ops.Merge,
		models.JobReorder:         ops.Reorder,
		models.JobMergeAndReorder: ops.MergeAndReorder,
		models.JobRotate:          ops.Rotate,
	}
	return e
}

// RunStatus is what [Executor.ExecuteNow] reports after a successful run.
type RunStatus struct {
	ScheduleID string
	Status     models.RunStatus
	LastRunAt  *time.Time
}

// RunFailedError is returned by [Executor.ExecuteNow] when the run was recorded as failed.
// Its message is the stored error text.
type RunFailedError struct {
	ScheduleID string
	Message    string
	Err        error
}

func (e *RunFailedError) Error() string { return e.Message }

func (e *RunFailedError) Unwrap() error { return e.Err }

// outcome is the result of one pass through the run path.
type outcome struct {
	schedule *models.Schedule
	result   operations.Result
	err      error  // cause of a recorded failure
	message  string // stored error text
}

// Execute runs a schedule on the scheduled path.
//
// Missing, disabled and already-running schedules are skipped. No error is returned: the outcome is
// only visible through the execution history and the schedule's last-run fields.
func (e *Executor) Execute(ctx context.Context, scheduleID string) {
	if _, err := e.run(ctx, scheduleID, ""); err != nil && !isSkip(err) {
		e.logger.Error("schedule run aborted", "schedule", scheduleID, "err", err)
	}
}

// ExecuteNow runs a schedule on behalf of userID and reports its fresh status.
//
// It returns [shared.ErrNotFound], [shared.ErrForbidden], [shared.ErrScheduleDisabled] or
// [shared.ErrScheduleBusy] when the run did not start, and a [*RunFailedError] when it failed.
func (e *Executor) ExecuteNow(ctx context.Context, scheduleID, userID string) (*RunStatus, error) {
	out, err := e.run(ctx, scheduleID, userID)
	if err != nil {
		return nil, err
	}

	s, err := e.schedules.Get(ctx, scheduleID)
	if err != nil {
		s = out.schedule
		e.logger.Warn("failed to reload schedule after run", "schedule", scheduleID, "err", err)
	}

	if out.err != nil {
		message := s.LastError
		if message == "" {
			message = out.message
		}
		return nil, &RunFailedError{ScheduleID: scheduleID, Message: message, Err: out.err}
	}

	return &RunStatus{ScheduleID: s.ID, Status: s.LastStatus, LastRunAt: s.LastRunAt}, nil
}

// skipError means the run never started. It unwraps to the reason.
type skipError struct {
	reason error
}

func (e *skipError) Error() string { return "schedule skipped: " + e.reason.Error() }

func (e *skipError) Unwrap() error { return e.reason }

func skip(reason error) error {
	return &skipError{reason: reason}
}

func isSkip(err error) bool {
	var s *skipError
	return errors.As(err, &s)
}

// run is the shared run path. A non-nil error means the run never started or could not be recorded;
// a failed run is reported through outcome.err.
func (e *Executor) run(ctx context.Context, scheduleID, requester string) (*outcome, error) {
	s, err := e.schedules.Get(ctx, scheduleID)
	if errors.Is(err, shared.ErrNotFound) {
		e.logger.Info("schedule not found, skipping", "schedule", scheduleID)
		return nil, skip(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	if requester != "" && s.UserID != requester {
		return nil, shared.ErrForbidden
	}

	if !s.Enabled {
		e.logger.Info("schedule disabled, skipping", "schedule", s.ID)
		return nil, skip(shared.ErrScheduleDisabled)
	}

	unlock, ok, err := e.locks.TryLock(ctx, "schedule:"+s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire schedule lock: %w", err)
	}
	if !ok {
		e.logger.Info("schedule already running, skipping", "schedule", s.ID)
		return nil, skip(shared.ErrScheduleBusy)
	}
	defer unlock()

	record, err := e.executions.Create(ctx, s.ID, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	out := &outcome{schedule: s}
	out.result, out.err = e.dispatchSafely(ctx, s)
	if out.err != nil {
		out.message = e.recordFailure(ctx, s, record, out.err)
		return out, nil
	}

	e.recordSuccess(ctx, s, record, out.result)
	return out, nil
}

// dispatchSafely resolves the client and runs the operation, turning panics into errors.
func (e *Executor) dispatchSafely(ctx context.Context, s *models.Schedule) (result operations.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error while running %s: %v", s.JobType, r)
		}
	}()

	op, ok := e.dispatch[s.JobType]
	if !ok {
		return operations.Result{}, &operations.JobExecutionError{
			Kind:    operations.KindConfiguration,
			Op:      "dispatch",
			Message: fmt.Sprintf("unknown job type %q", s.JobType),
		}
	}

	api, err := e.clients.GetClient(ctx, s.UserID)
	if err != nil {
		return operations.Result{}, err
	}

	return op(ctx, s, api)
}

func (e *Executor) recordSuccess(ctx context.Context, s *models.Schedule, record *models.ExecutionRecord, result operations.Result) {
	completed := e.now().UTC()

	if err := e.executions.Complete(ctx, record.ID, models.ExecutionSuccess, result.TracksAdded, result.TracksTotal, "", completed); err != nil {
		e.logger.Error("failed to record successful execution", "schedule", s.ID, "execution", record.ID, "err", err)
	}
	if err := e.schedules.UpdateLastRun(ctx, s.ID, completed, models.RunSuccess, ""); err != nil {
		e.logger.Error("failed to update schedule after success", "schedule", s.ID, "err", err)
	}

	e.logger.Info("schedule run succeeded",
		"schedule", s.ID, "job", s.JobType, "added", result.TracksAdded, "total", result.TracksTotal,
		"duration", completed.Sub(record.StartedAt))

	e.recordActivity(ctx, &models.ActivityEntry{
		UserID:       s.UserID,
		ActivityType: models.ActivityRunSuccess,
		Description:  fmt.Sprintf("%s on %s added %d tracks", s.JobType, playlistLabel(s), result.TracksAdded),
		Metadata: models.Params{
			"schedule_id":  s.ID,
			"job_type":     string(s.JobType),
			"tracks_added": result.TracksAdded,
			"tracks_total": result.TracksTotal,
		},
	})
}

// recordFailure persists a failed run and returns the stored error text. It never panics.
func (e *Executor) recordFailure(ctx context.Context, s *models.Schedule, record *models.ExecutionRecord, cause error) (message string) {
	message = shared.Truncate(FailureMessage(cause), e.errLimit)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while recording failed run", "schedule", s.ID, "panic", r)
		}
	}()

	e.logger.Error("schedule run failed", "schedule", s.ID, "job", s.JobType, "err", cause)

	completed := e.now().UTC()
	if err := e.executions.Complete(ctx, record.ID, models.ExecutionFailed, 0, 0, message, completed); err != nil {
		e.logger.Error("failed to record failed execution", "schedule", s.ID, "execution", record.ID, "err", err)
	}
	if err := e.schedules.UpdateLastRun(ctx, s.ID, completed, models.RunFailed, message); err != nil {
		e.logger.Error("failed to update schedule after failure", "schedule", s.ID, "err", err)
	}

	e.recordActivity(ctx, &models.ActivityEntry{
		UserID:       s.UserID,
		ActivityType: models.ActivityRunFailed,
		Description:  fmt.Sprintf("%s on %s failed", s.JobType, playlistLabel(s)),
		Metadata: models.Params{
			"schedule_id": s.ID,
			"job_type":    string(s.JobType),
			"error":       message,
		},
	})
	return message
}

func (e *Executor) recordActivity(ctx context.Context, entry *models.ActivityEntry) {
	if e.activity == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("panic while recording activity", "panic", r)
		}
	}()
	if err := e.activity.Record(ctx, entry); err != nil {
		e.logger.Warn("failed to record activity", "type", entry.ActivityType, "err", err)
	}
}

func playlistLabel(s *models.Schedule) string {
	if s.TargetPlaylistName != "" {
		return s.TargetPlaylistName
	}
	return s.TargetPlaylistID
}

// FailureMessage renders err for storage, adding guidance where the user has to act.
func FailureMessage(err error) string {
	var (
		noCred  *credentials.NoCredentialError
		decrypt *credentials.DecryptionError
	)

	switch {
	case errors.As(err, &noCred):
		return fmt.Sprintf("%v; connect an account with `plx auth spotify --user %s`", err, noCred.UserID)
	case errors.As(err, &decrypt):
		return fmt.Sprintf("%v; check that the encryption key matches the one used to store it, or re-authenticate", err)
	case retry.Classify(err).Category == retry.CredentialExpired:
		return fmt.Sprintf("%v; the stored credential was revoked or expired, re-authenticate with `plx auth spotify`", err)
	default:
		return err.Error()
	}
}
