package budget

import (
	"time"
)

// Deadline is a wall-clock budget measured from a fixed start. It only gates
// whether new work is scheduled; work already dispatched is bounded by its own
// per-call timeout.
type Deadline struct {
	start time.Time
	total time.Duration
	now   func() time.Time
}

// NewDeadline starts a budget of total at start. A nil now uses time.Now.
func NewDeadline(start time.Time, total time.Duration, now func() time.Time) Deadline {
	if now == nil {
		now = time.Now
	}
	return Deadline{start: start, total: total, now: now}
}

// Elapsed returns the time spent since start.
func (d Deadline) Elapsed() time.Duration {
	return d.now().Sub(d.start)
}

// Remaining returns the unspent budget. The result is never negative.
func (d Deadline) Remaining() time.Duration {
	r := d.total - d.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// Expired reports whether the budget is spent.
func (d Deadline) Expired() bool {
	return d.Remaining() <= 0
}

const (
	scorePenaltyStep   = 200 * time.Millisecond
	failurePenaltyStep = 300 * time.Millisecond
)

// AdaptiveTimeout shrinks base for sources with a negative health score and
// for sources that already failed during this request, then clamps the
// result to [min, remaining]. remaining wins when it is below min.
func AdaptiveTimeout(base time.Duration, score int, failuresThisRequest int, min time.Duration, remaining time.Duration) time.Duration {
	t := base
	if score < 0 {
		t -= time.Duration(-score) * scorePenaltyStep
	}
	if failuresThisRequest > 1 {
		t -= time.Duration(failuresThisRequest-1) * failurePenaltyStep
	}
	if t < min {
		t = min
	}
	if t > remaining {
		t = remaining
	}
	if t < 0 {
		return 0
	}
	return t
}

// Cap returns t limited to remaining.
func Cap(t time.Duration, remaining time.Duration) time.Duration {
	if t > remaining {
		return remaining
	}
	return t
}
