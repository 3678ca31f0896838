package operations

import (
	"errors"
	"fmt"

	"github.com/desertthunder/plx/internal/retry"
)

// ErrorKind groups operation failures by what the user can do about them.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindAPI           ErrorKind = "api"
)

// JobExecutionError is the typed failure of an operation. Its text is stored verbatim as the run's error.
type JobExecutionError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *JobExecutionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *JobExecutionError) Unwrap() error { return e.Err }

func configError(op, message string, err error) *JobExecutionError {
	return &JobExecutionError{Kind: KindConfiguration, Op: op, Message: message, Err: err}
}

// apiError wraps a playlist API failure. A missing playlist becomes a descriptive not-found error.
func apiError(op, role, playlistID string, err error) error {
	var jobErr *JobExecutionError
	if errors.As(err, &jobErr) {
		return err
	}

	if retry.Classify(err).Category == retry.NotFound {
		return &JobExecutionError{
			Kind:    KindNotFound,
			Op:      op,
			Message: fmt.Sprintf("%s playlist %s not found; it may have been deleted", role, playlistID),
			Err:     err,
		}
	}

	return &JobExecutionError{Kind: KindAPI, Op: op, Message: "failed to " + op, Err: err}
}
