// Package guardrails holds cross cutting safety helpers for the refinery
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for one run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Read caps the raw object read and decode phase
	Read time.Duration

	// Partition is the overall time budget for one partition's
	// read-merge-replace sequence
	Partition time.Duration
}

// ForRead returns a sub context for the read phase bounded by Read and any remaining parent budget
func ForRead(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Read)
}

// ForPartition returns a sub context for one partition bounded by Partition and any remaining parent budget
func ForPartition(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Partition)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
// When d is zero it returns a simple cancelable child inheriting the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}

	// respect any parent deadline by taking the minimum
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
