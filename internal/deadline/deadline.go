// Package deadline bounds a whole operation with a single wall-clock limit,
// independent of any per-phase attempt budgets inside it.
package deadline

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut indicates the operation's wall-clock limit elapsed before it
// finished. It is distinct from the operation's own failure errors so callers
// can report "may still be in progress" rather than "failed".
var ErrTimedOut = errors.New("operation timed out")

// Run executes fn under a context carrying the given wall-clock limit. The
// deadline propagates into every blocking call and inter-poll sleep that
// honors the context, so it can interrupt fn mid-wait. A limit of zero means
// no deadline.
//
// When fn returns after the limit elapsed, the result is ErrTimedOut
// regardless of the error fn surfaced, since past the deadline any failure is
// attributed to the timeout.
func Run(ctx context.Context, limit time.Duration, fn func(context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimedOut
	}
	return err
}
