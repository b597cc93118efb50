package schedule

import (
	"slices"
	"time"

	"oyasumi/internal/common"
)

// Decision is the outcome of evaluating a tenant's rule at a point in time.
type Decision int

const (
	// Skip means nothing should happen this minute.
	Skip Decision = iota
	// FireNormal means the scheduled action should run.
	FireNormal
	// FireExcluded means the minute matches but is on the exclude list,
	// so the alternate (harmless) message should be posted instead.
	FireExcluded
)

func (d Decision) String() string {
	switch d {
	case FireNormal:
		return "fire"
	case FireExcluded:
		return "fire-excluded"
	default:
		return "skip"
	}
}

// Exclusion marks one weekday/time combination at which the
// scheduled action is replaced by the alternate message.
type Exclusion struct {
	Weekday string
	HHMM    string
}

func (e Exclusion) String() string {
	return e.Weekday + " " + e.HHMM
}

// Rule is a single tenant's schedule: the times at which the action
// fires, the weekday/time pairs excluded from it, and an optional
// snooze window during which everything is suppressed.
type Rule struct {
	ExecutionTimes []string
	Exclusions     []Exclusion
	SnoozeUntil    time.Time
}

// Evaluate decides whether rule should fire at now. It is a pure
// function of its inputs; callers perform the actual side effects.
func Evaluate(now time.Time, rule Rule) Decision {
	if !rule.SnoozeUntil.IsZero() && now.Before(rule.SnoozeUntil) {
		return Skip
	}
	hhmm := common.HHMM(now)
	if !slices.Contains(rule.ExecutionTimes, hhmm) {
		return Skip
	}
	if slices.Contains(rule.Exclusions, Exclusion{Weekday: common.Weekday(now), HHMM: hhmm}) {
		return FireExcluded
	}
	return FireNormal
}
