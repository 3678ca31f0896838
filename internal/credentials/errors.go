package credentials

import "fmt"

// NoCredentialError means the user never connected an account, or disconnected it.
type NoCredentialError struct {
	UserID string
}

func (e *NoCredentialError) Error() string {
	return fmt.Sprintf("no stored credential for user %s", e.UserID)
}

// DecryptionError means the stored ciphertext cannot be opened with the configured key.
type DecryptionError struct {
	UserID string
	Err    error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt credential for user %s: %v", e.UserID, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// ExchangeError wraps a failed refresh-token exchange. Err carries the retry classification.
type ExchangeError struct {
	UserID string
	Err    error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("failed to exchange credential for user %s: %v", e.UserID, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
