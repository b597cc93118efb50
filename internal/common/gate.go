package common

import (
	"sync"
	"time"
)

// MinuteGate collapses repeated firings within the same minute into one.
// The watch loops tick faster than once per minute, so a matching
// "HH:MM" would otherwise be seen several times; the gate lets the
// first tick of a minute through and swallows the rest.
type MinuteGate struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMinuteGate() *MinuteGate {
	return &MinuteGate{last: make(map[string]time.Time)}
}

// Allow reports whether key may fire at now. It returns true at most
// once per key per minute.
func (g *MinuteGate) Allow(key string, now time.Time) bool {
	minute := now.Truncate(time.Minute)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last[key].Equal(minute) {
		return false
	}
	g.last[key] = minute
	return true
}
