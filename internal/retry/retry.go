package retry

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxRetries int           // additional attempts after the first
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on the exponential backoff
}

// DefaultPolicy returns 3 retries starting at 1s and capped at 60s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: time.Minute}
}

// Backoff returns min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Delay returns the wait before retrying attempt. Rate limits honour the server's Retry-After when it is longer.
func (p Policy) Delay(c Classification, attempt int) time.Duration {
	backoff := p.Backoff(attempt)
	if c.Category == RateLimited && c.RetryAfter > backoff {
		return c.RetryAfter
	}
	return backoff
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client runs calls under a [Policy].
type Client struct {
	policy   Policy
	logger   *log.Logger
	sleep    SleepFunc
	classify func(error) Classification
}

// Option customises a [Client].
type Option func(*Client)

// WithSleep replaces the context-aware timer sleep.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithClassifier replaces [Classify].
func WithClassifier(fn func(error) Classification) Option {
	return func(c *Client) { c.classify = fn }
}

// New creates a [Client]. A nil logger uses [log.Default].
func New(policy Policy, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		policy:   policy,
		logger:   logger,
		sleep:    sleepContext,
		classify: Classify,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the client's retry policy.
func (c *Client) Policy() Policy {
	return c.policy
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the retry budget is spent.
//
// Failures are returned as [*NotFoundError], [*CredentialExpiredError], [*RateLimitError] or [*APIError],
// each wrapping the last cause.
func (c *Client) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		cls := c.classify(err)
		if !cls.Category.Retryable() || attempt >= c.policy.MaxRetries {
			return typedError(op, cls, err)
		}

		delay := c.policy.Delay(cls, attempt)
		c.logger.Warn("retrying playlist API call",
			"op", op,
			"category", cls.Category,
			"attempt", attempt+1,
			"max_retries", c.policy.MaxRetries,
			"delay", delay,
			"err", err,
		)

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return typedError(op, cls, errors.Join(err, sleepErr))
		}
	}
}

// Call is [Client.Do] for functions returning a value.
func Call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := c.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
