package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingKey         = fmt.Errorf("encryption key not configured")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Persistence errors
	ErrNotFound         = fmt.Errorf("record not found")
	ErrAlreadyFinalized = fmt.Errorf("execution already finalized")

	// Schedule errors
	ErrScheduleDisabled = fmt.Errorf("schedule is disabled")
	ErrScheduleBusy     = fmt.Errorf("schedule is already running")
	ErrForbidden        = fmt.Errorf("schedule belongs to another user")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
