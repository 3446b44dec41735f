package ecs

import (
	"context"
	"time"
)

// WaitPolicy bounds a single polling loop. MaxAttempts of zero means the loop
// is unbounded and is limited only by the caller's context deadline.
type WaitPolicy struct {
	PollingInterval time.Duration
	MaxAttempts     int
}

// PollFunc performs one status query.
type PollFunc func(ctx context.Context) (string, error)

// PollUntilTerminal repeatedly calls query, classifies each result and sleeps
// policy.PollingInterval between attempts. It returns (true, status) on a
// success classification, (false, status) on a failure classification, and
// (false, lastStatus) once the attempt budget is exhausted.
//
// The attempt counter starts at zero and is checked before each query, so
// MaxAttempts of N permits up to N+1 queries. Existing call sites depend on
// that accounting, so it is kept as-is.
//
// Errors from query abort polling immediately; there is no retry or backoff
// on transport failures.
func PollUntilTerminal(ctx context.Context, query PollFunc, classify func(string) PollState, policy WaitPolicy) (bool, string, error) {
	var status string
	attempts := 0
	for policy.MaxAttempts == 0 || attempts <= policy.MaxAttempts {
		var err error
		status, err = query(ctx)
		if err != nil {
			return false, status, err
		}

		switch classify(status) {
		case PollSuccess:
			return true, status, nil
		case PollFailure:
			return false, status, nil
		}

		if err := sleep(ctx, policy.PollingInterval); err != nil {
			return false, status, err
		}
		attempts++
	}
	return false, status, nil
}

// sleep blocks for d or until the context is done, whichever comes first.
// A cancellable sleep keeps the outer deadline able to interrupt the loop
// mid-wait instead of only between iterations.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
