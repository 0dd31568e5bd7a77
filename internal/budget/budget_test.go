package budget

import (
	"testing"
	"time"
)

func TestDeadline_RemainingNeverNegative(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	d := NewDeadline(start, 2*time.Second, func() time.Time { return now })
	if d.Remaining() != 2*time.Second || d.Expired() {
		t.Fatalf("fresh deadline: remaining=%v", d.Remaining())
	}
	now = start.Add(1500 * time.Millisecond)
	if d.Remaining() != 500*time.Millisecond {
		t.Fatalf("remaining=%v", d.Remaining())
	}
	now = start.Add(5 * time.Second)
	if d.Remaining() != 0 || !d.Expired() {
		t.Fatalf("expected expired, remaining=%v", d.Remaining())
	}
}

func TestAdaptiveTimeout(t *testing.T) {
	cases := []struct {
		name      string
		score     int
		failures  int
		remaining time.Duration
		want      time.Duration
	}{
		{"healthy", 4, 0, 10 * time.Second, 5 * time.Second},
		{"negative score", -3, 0, 10 * time.Second, 4400 * time.Millisecond},
		{"repeat failures", 0, 3, 10 * time.Second, 4400 * time.Millisecond},
		{"both", -8, 4, 10 * time.Second, 2500 * time.Millisecond},
		{"floor", -8, 20, 10 * time.Second, 1200 * time.Millisecond},
		{"remaining cap", 0, 0, 700 * time.Millisecond, 700 * time.Millisecond},
	}
	for _, c := range cases {
		got := AdaptiveTimeout(5*time.Second, c.score, c.failures, 1200*time.Millisecond, c.remaining)
		if got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}
