// Package health tracks a bounded reputation score and cooldown window per
// upstream source or mirror instance.
package health

import (
	"regexp"
	"sort"
	"time"
)

const (
	MinScore = -8
	MaxScore = 8

	successReward  = 2
	normalPenalty  = 2
	blockedPenalty = 4

	cooldownScore       = -2
	doubleCooldownScore = -5
)

// State is the persisted health of one source or instance.
type State struct {
	Score         int       `json:"score"`
	CooldownUntil time.Time `json:"cooldownUntil,omitempty"`
	LastSuccessAt time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt time.Time `json:"lastFailureAt,omitempty"`
}

// Policy parameterizes failure handling.
type Policy struct {
	// Cooldown is the base cooldown; it doubles when the score is very low.
	Cooldown time.Duration
}

// DefaultPolicy is used when a zero Policy is supplied.
var DefaultPolicy = Policy{Cooldown: 60 * time.Second}

// Cooling reports whether the state is inside a cooldown window at now.
func (s State) Cooling(now time.Time) bool {
	return !s.CooldownUntil.IsZero() && now.Before(s.CooldownUntil)
}

// Succeed returns the state after a successful call.
func (s State) Succeed(now time.Time) State {
	s.Score = clamp(s.Score + successReward)
	s.CooldownUntil = time.Time{}
	s.LastSuccessAt = now
	return s
}

// Fail returns the state after a failed call with err.
func (s State) Fail(now time.Time, err error, p Policy) State {
	if p.Cooldown <= 0 {
		p = DefaultPolicy
	}
	penalty := normalPenalty
	blocked := IsBlocking(err)
	if blocked {
		penalty = blockedPenalty
	}
	s.Score = clamp(s.Score - penalty)
	s.LastFailureAt = now
	if s.Score <= cooldownScore || blocked {
		d := p.Cooldown
		if s.Score <= doubleCooldownScore {
			d *= 2
		}
		s.CooldownUntil = now.Add(d)
	}
	return s
}

func clamp(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}

var blockingRe = regexp.MustCompile(`(?i)challenge|403|429|rate limit|forbidden`)

// IsBlocking reports whether err looks like an anti-bot block or rate limit.
func IsBlocking(err error) bool {
	if err == nil {
		return false
	}
	return blockingRe.MatchString(err.Error())
}

// Candidate is one source or instance eligible for a call.
type Candidate struct {
	Name     string
	Priority int
	State    State
}

// Prioritize orders candidates for a call: cooling candidates are dropped,
// then higher score first, then lower Priority. When every candidate is
// cooling the cooldown filter is ignored so callers never stall.
func Prioritize(cands []Candidate, now time.Time) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if !c.State.Cooling(now) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, cands...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].State.Score != out[j].State.Score {
			return out[i].State.Score > out[j].State.Score
		}
		return out[i].Priority < out[j].Priority
	})
	return out
}
