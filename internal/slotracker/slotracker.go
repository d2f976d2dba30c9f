// Package slotracker implements the SLO Tracker (spec §4.7): a
// thread-safe registry of named SLOs that records observations against
// domain.SLO's immutable resetting-window accounting.
package slotracker

import (
	"sync"
	"time"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/errors"
)

// entry pairs an SLO with the wall-clock time its current window began.
type entry struct {
	slo         domain.SLO
	windowStart time.Time
}

// Tracker holds one windowed SLO per name.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New constructs an empty Tracker. now defaults to time.Now when nil.
func New(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{entries: make(map[string]entry), now: now}
}

// Register adds a new tracked SLO. Re-registering an existing name
// resets its window.
func (t *Tracker) Register(slo domain.SLO) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[slo.Name] = entry{slo: slo, windowStart: t.now()}
}

// Record accounts for one observation against name's SLO.
func (t *Tracker) Record(name string, ok bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, found := t.entries[name]
	if !found {
		return errors.NotFound("slotracker.record", "slo not registered: "+name)
	}
	now := t.now()
	age := int64(now.Sub(e.windowStart).Seconds())
	next := e.slo.Record(ok, age)
	if age > e.slo.WindowSeconds {
		e.windowStart = now
	}
	e.slo = next
	t.entries[name] = e
	return nil
}

// Current returns name's SLO snapshot.
func (t *Tracker) Current(name string) (domain.SLO, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, found := t.entries[name]
	if !found {
		return domain.SLO{}, errors.NotFound("slotracker.current", "slo not registered: "+name)
	}
	return e.slo, nil
}

// Violated reports whether name's SLO has exceeded its error budget.
func (t *Tracker) Violated(name string) (bool, error) {
	slo, err := t.Current(name)
	if err != nil {
		return false, err
	}
	return slo.Violated(), nil
}

// BudgetConsumed reports the fraction of name's error budget consumed.
func (t *Tracker) BudgetConsumed(name string) (float64, error) {
	slo, err := t.Current(name)
	if err != nil {
		return 0, err
	}
	return slo.BudgetConsumed(), nil
}

// Names returns every registered SLO name.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	return names
}
