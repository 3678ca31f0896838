package tasks

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOpts configures [Executor.RunBatch].
type BatchOpts struct {
	Concurrency int     // Concurrent runs (default: 4, max: 16)
	RateLimit   float64 // Runs started per second; zero means unlimited
}

// BatchRunResult is the outcome of one schedule in a batch.
type BatchRunResult struct {
	ScheduleID  string
	Skipped     bool
	TracksAdded int
	TracksTotal int
	Error       error
}

// BatchResult summarizes a batch.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []BatchRunResult
}

// RunBatch runs the given schedules on the scheduled path with bounded concurrency.
//
// Individual failures are recorded per schedule and reported in the result; only cancellation of ctx
// is returned as an error.
func (e *Executor) RunBatch(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BatchOpts) (*BatchResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Concurrency > 16 {
		opts.Concurrency = 16
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	result := &BatchResult{Total: len(ids), Results: make([]BatchRunResult, 0, len(ids))}

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, id := range ids {
		if err := limiter.Wait(gctx); err != nil {
			break
		}

		sendProgress(prog, startedUpdate(i+1, len(ids), id))
		g.Go(func() error {
			res := e.runOne(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			completed++
			result.Results = append(result.Results, res)
			switch {
			case res.Skipped:
				result.Skipped++
			case res.Error != nil:
				result.Failed++
			default:
				result.Succeeded++
			}
			sendProgress(prog, finishedUpdate(completed, len(ids), res))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Executor) runOne(ctx context.Context, id string) BatchRunResult {
	res := BatchRunResult{ScheduleID: id}

	out, err := e.run(ctx, id, "")
	switch {
	case err != nil && isSkip(err):
		res.Skipped = true
		res.Error = errors.Unwrap(err)
	case err != nil:
		res.Error = err
		e.logger.Error("schedule run aborted", "schedule", id, "err", err)
	case out.err != nil:
		res.Error = &RunFailedError{ScheduleID: id, Message: out.message, Err: out.err}
	default:
		res.TracksAdded = out.result.TracksAdded
		res.TracksTotal = out.result.TracksTotal
	}
	return res
}
