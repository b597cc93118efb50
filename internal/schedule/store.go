package schedule

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"oyasumi/internal/common"
)

var (
	// ErrInvalidArgument means a command argument was rejected; the
	// rule is left unchanged.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyExists means the time or exclusion is already present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound means the time or exclusion is not present.
	ErrNotFound = errors.New("not found")
)

// Snooze bounds, in minutes.
const (
	MinSnoozeMinutes = 1
	MaxSnoozeMinutes = 120
)

// Status reports whether a tenant's schedule is running or snoozed.
type Status struct {
	Sleeping bool
	Until    time.Time
}

// Store holds one Rule per tenant. Discord handlers run on their own
// goroutines, so every access goes through the mutex; the store is the
// single owner of all rule state.
type Store struct {
	mu    sync.Mutex
	rules map[string]*Rule
}

func NewStore() *Store {
	return &Store{rules: make(map[string]*Rule)}
}

// rule returns the tenant's rule, creating an empty one on first use.
// Callers must hold mu.
func (s *Store) rule(tenant string) *Rule {
	r, ok := s.rules[tenant]
	if !ok {
		r = &Rule{}
		s.rules[tenant] = r
	}
	return r
}

// Seed installs the default execution times for a tenant seen for the
// first time. A tenant that already has a rule is left alone.
func (s *Store) Seed(tenant string, times []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[tenant]; ok {
		return
	}
	r := s.rule(tenant)
	r.ExecutionTimes = slices.Clone(times)
	slices.Sort(r.ExecutionTimes)
}

// AddTime adds an "HH:MM" entry to the tenant's execution times.
func (s *Store) AddTime(tenant, hhmm string) error {
	if !common.ValidHHMM(hhmm) {
		return fmt.Errorf("%w: %q is not an HH:MM time", ErrInvalidArgument, hhmm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	if slices.Contains(r.ExecutionTimes, hhmm) {
		return fmt.Errorf("%w: execution time %s", ErrAlreadyExists, hhmm)
	}
	r.ExecutionTimes = append(r.ExecutionTimes, hhmm)
	slices.Sort(r.ExecutionTimes)
	return nil
}

// RemoveTime removes an "HH:MM" entry from the tenant's execution times.
func (s *Store) RemoveTime(tenant, hhmm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	i := slices.Index(r.ExecutionTimes, hhmm)
	if i < 0 {
		return fmt.Errorf("%w: execution time %s", ErrNotFound, hhmm)
	}
	r.ExecutionTimes = slices.Delete(r.ExecutionTimes, i, i+1)
	return nil
}

// AddExclusion adds a weekday/time pair to the tenant's exclude list.
func (s *Store) AddExclusion(tenant, weekday, hhmm string) error {
	if !common.ValidWeekday(weekday) {
		return fmt.Errorf("%w: %q is not a weekday", ErrInvalidArgument, weekday)
	}
	if !common.ValidHHMM(hhmm) {
		return fmt.Errorf("%w: %q is not an HH:MM time", ErrInvalidArgument, hhmm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	e := Exclusion{Weekday: weekday, HHMM: hhmm}
	if slices.Contains(r.Exclusions, e) {
		return fmt.Errorf("%w: exclusion %s", ErrAlreadyExists, e)
	}
	r.Exclusions = append(r.Exclusions, e)
	slices.SortFunc(r.Exclusions, compareExclusions)
	return nil
}

// RemoveExclusion removes a weekday/time pair from the exclude list.
func (s *Store) RemoveExclusion(tenant, weekday, hhmm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	e := Exclusion{Weekday: weekday, HHMM: hhmm}
	i := slices.Index(r.Exclusions, e)
	if i < 0 {
		return fmt.Errorf("%w: exclusion %s", ErrNotFound, e)
	}
	r.Exclusions = slices.Delete(r.Exclusions, i, i+1)
	return nil
}

func compareExclusions(a, b Exclusion) int {
	if a.Weekday != b.Weekday {
		if a.Weekday < b.Weekday {
			return -1
		}
		return 1
	}
	if a.HHMM < b.HHMM {
		return -1
	}
	if a.HHMM > b.HHMM {
		return 1
	}
	return 0
}

// Snooze suppresses the tenant's schedule for the given number of
// minutes, counted from now. A new snooze overwrites any running one.
// Minutes outside [MinSnoozeMinutes, MaxSnoozeMinutes] are rejected
// and the rule is left untouched.
func (s *Store) Snooze(tenant string, minutes int, now time.Time) (time.Time, error) {
	if minutes < MinSnoozeMinutes || minutes > MaxSnoozeMinutes {
		return time.Time{}, fmt.Errorf("%w: minutes must be between %d and %d",
			ErrInvalidArgument, MinSnoozeMinutes, MaxSnoozeMinutes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	until := now.Add(time.Duration(minutes) * time.Minute)
	s.rule(tenant).SnoozeUntil = until
	return until, nil
}

// Wake clears the tenant's snooze. It reports whether the tenant was
// actually snoozing; waking an awake tenant is a no-op.
func (s *Store) Wake(tenant string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	if r.SnoozeUntil.IsZero() {
		return false
	}
	r.SnoozeUntil = time.Time{}
	return true
}

// ExpireSnooze clears a snooze whose deadline has passed. It returns
// true exactly once per expired snooze, so the caller can announce the
// wake-up without repeating itself on every tick.
func (s *Store) ExpireSnooze(tenant string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	if r.SnoozeUntil.IsZero() || now.Before(r.SnoozeUntil) {
		return false
	}
	r.SnoozeUntil = time.Time{}
	return true
}

// Status reports whether the tenant is running or sleeping.
func (s *Store) Status(tenant string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	return Status{Sleeping: !r.SnoozeUntil.IsZero(), Until: r.SnoozeUntil}
}

// List returns copies of the tenant's execution times and exclusions,
// both in sorted order.
func (s *Store) List(tenant string) ([]string, []Exclusion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rule(tenant)
	return slices.Clone(r.ExecutionTimes), slices.Clone(r.Exclusions)
}

// Decide evaluates the tenant's rule at now.
func (s *Store) Decide(tenant string, now time.Time) Decision {
	s.mu.Lock()
	r := s.rule(tenant)
	rule := Rule{
		ExecutionTimes: slices.Clone(r.ExecutionTimes),
		Exclusions:     slices.Clone(r.Exclusions),
		SnoozeUntil:    r.SnoozeUntil,
	}
	s.mu.Unlock()
	return Evaluate(now, rule)
}
