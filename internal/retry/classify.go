// Package retry classifies playlist API failures and retries the transient ones with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/desertthunder/plx/internal/services"
	"golang.org/x/oauth2"
)

// Category is the failure class of an external call.
type Category int

const (
	Unexpected Category = iota
	NotFound
	CredentialExpired
	RateLimited
	ServerError
	NetworkError
	ClientError
)

func (c Category) String() string {
	switch c {
	case NotFound:
		return "not_found"
	case CredentialExpired:
		return "credential_expired"
	case RateLimited:
		return "rate_limited"
	case ServerError:
		return "server_error"
	case NetworkError:
		return "network_error"
	case ClientError:
		return "client_error"
	default:
		return "unexpected"
	}
}

// Retryable reports whether another attempt may succeed.
func (c Category) Retryable() bool {
	return c == RateLimited || c == ServerError || c == NetworkError
}

// Classification is the result of [Classify].
type Classification struct {
	Category   Category
	RetryAfter time.Duration // server advertised delay, RateLimited only
}

// classified is implemented by the typed errors of this package so they keep their category when re-classified.
type classified interface {
	error
	Classification() Classification
}

// Classify maps err to a [Category].
func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: Unexpected}
	}

	var typed classified
	if errors.As(err, &typed) {
		return typed.Classification()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{Category: Unexpected}
	}

	var httpErr *services.HTTPError
	if errors.As(err, &httpErr) {
		return classifyStatus(httpErr.StatusCode, httpErr.RetryAfter)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return Classification{Category: CredentialExpired}
		}
		if retrieveErr.Response != nil {
			return classifyStatus(retrieveErr.Response.StatusCode, 0)
		}
		return Classification{Category: Unexpected}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return Classification{Category: NetworkError}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Category: NetworkError}
	}

	return Classification{Category: Unexpected}
}

func classifyStatus(status int, retryAfter time.Duration) Classification {
	switch {
	case status == http.StatusNotFound:
		return Classification{Category: NotFound}
	case status == http.StatusUnauthorized:
		return Classification{Category: CredentialExpired}
	case status == http.StatusTooManyRequests:
		return Classification{Category: RateLimited, RetryAfter: retryAfter}
	case status >= 500:
		return Classification{Category: ServerError}
	case status >= 400:
		return Classification{Category: ClientError}
	default:
		return Classification{Category: Unexpected}
	}
}

// NotFoundError reports a missing resource. Never retried.
type NotFoundError struct {
	Op  string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: resource not found: %v", e.Op, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Classification() Classification {
	return Classification{Category: NotFound}
}

// CredentialExpiredError reports a revoked or expired credential. The user must re-authenticate.
type CredentialExpiredError struct {
	Op  string
	Err error
}

func (e *CredentialExpiredError) Error() string {
	return fmt.Sprintf("%s: credential expired or revoked: %v", e.Op, e.Err)
}

func (e *CredentialExpiredError) Unwrap() error { return e.Err }

func (e *CredentialExpiredError) Classification() Classification {
	return Classification{Category: CredentialExpired}
}

// RateLimitError is returned once rate limiting outlasted the retry budget.
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (retry after %s): %v", e.Op, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func (e *RateLimitError) Classification() Classification {
	return Classification{Category: RateLimited, RetryAfter: e.RetryAfter}
}

// APIError covers client, unexpected and exhausted server/network failures.
type APIError struct {
	Op       string
	Category Category
	Err      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Category, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Classification() Classification {
	return Classification{Category: e.Category}
}

// typedError converts a classified failure into the error returned to callers.
func typedError(op string, c Classification, err error) error {
	var typed classified
	if errors.As(err, &typed) {
		return err
	}

	switch c.Category {
	case NotFound:
		return &NotFoundError{Op: op, Err: err}
	case CredentialExpired:
		return &CredentialExpiredError{Op: op, Err: err}
	case RateLimited:
		return &RateLimitError{Op: op, RetryAfter: c.RetryAfter, Err: err}
	default:
		return &APIError{Op: op, Category: c.Category, Err: err}
	}
}
