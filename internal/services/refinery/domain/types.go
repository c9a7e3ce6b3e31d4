// Package domain defines the refinery's window, report, and port types
package domain

import (
	"time"

	"spinlog/internal/core/play"
)

// Window bounds one run to a UTC calendar-day range, inclusive on both
// ends. Raw objects are laid out by collection day, so days are the
// natural resolution for selecting input
type Window struct {
	From time.Time
	To   time.Time
}

// Days returns each UTC day in the window in order
func (w Window) Days() []time.Time {
	from := truncateDay(w.From)
	to := truncateDay(w.To)
	if to.Before(from) {
		return nil
	}
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PartitionFailure records one partition the run could not update.
// Prior partition content is untouched when a replace fails
type PartitionFailure struct {
	Key  play.PartitionKey
	Code string
	Err  string
}

// RunReport is the engine's sole status output: one per invocation,
// logged and returned, never persisted
type RunReport struct {
	RunID  string
	Window Window

	// Source accounting
	Objects   int
	BytesRead int64

	// Record accounting
	LinesSeen       int
	Malformed       int
	Invalid         int
	InvalidByReason map[string]int
	Valid           int

	// Dedup accounting
	DupInBatch         int
	DupAgainstExisting int
	Written            int

	// Partition accounting
	PartitionsTouched  int
	PartitionsCreated  int
	PartitionsReplaced int
	PartitionsFailed   []PartitionFailure

	// Timings
	Started  time.Time
	Finished time.Time
	ReadMS   int
	WriteMS  int
}

// Rejected counts every dropped record, decode failures included
func (r *RunReport) Rejected() int { return r.Malformed + r.Invalid }

// Failed reports whether any partition was left not updated
func (r *RunReport) Failed() bool { return len(r.PartitionsFailed) > 0 }

// VerifyProblem is one invariant violation found in the dataset
type VerifyProblem struct {
	Key    play.PartitionKey
	Detail string
}

// VerifyReport summarizes a dataset invariant scan
type VerifyReport struct {
	Partitions int
	Records    int
	Problems   []VerifyProblem
}

// OK reports whether the scan found a clean dataset
func (v *VerifyReport) OK() bool { return len(v.Problems) == 0 }
