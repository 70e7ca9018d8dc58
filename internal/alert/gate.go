package alert

import (
	"sort"
	"sync"
	"time"
)

// DefaultCooldown is the minimum spacing between two alerts for the same key.
const DefaultCooldown = 300 * time.Second

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Gate suppresses repeat alerts for a key within the cooldown period.
//
// The registry lives in memory only; a restart forgets every cooldown.
type Gate struct {
	mu       sync.RWMutex
	cooldown time.Duration
	last     map[string]time.Time
	now      Clock
}

// NewGate creates a gate with the given cooldown. A nil clock uses time.Now.
func NewGate(cooldown time.Duration, clock Clock) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
		now:      clock,
	}
}

// CanAlert reports whether key has never alerted or its cooldown has strictly elapsed.
func (g *Gate) CanAlert(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	last, ok := g.last[key]
	if !ok {
		return true
	}
	return g.now().Sub(last) > g.cooldown
}

// Record stamps key with the current time.
func (g *Gate) Record(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[key] = g.now()
}

// Cooldown returns the active cooldown.
func (g *Gate) Cooldown() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cooldown
}

// SetCooldown replaces the cooldown. Existing records are kept.
func (g *Gate) SetCooldown(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldown = d
}

// CooldownEntry describes one key in the registry.
type CooldownEntry struct {
	Key              string    `json:"key"`
	LastAlert        time.Time `json:"last_alert"`
	RemainingSeconds float64   `json:"remaining_seconds"`
}

// Snapshot returns a copy of the registry with the time left on each cooldown.
func (g *Gate) Snapshot() []CooldownEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := g.now()
	entries := make([]CooldownEntry, 0, len(g.last))
	for key, last := range g.last {
		remaining := g.cooldown - now.Sub(last)
		if remaining < 0 {
			remaining = 0
		}
		entries = append(entries, CooldownEntry{
			Key:              key,
			LastAlert:        last,
			RemainingSeconds: remaining.Seconds(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
