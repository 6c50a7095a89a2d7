// Package queue holds the discovery dedup set and the priority execution
// queue between the decision engine and the execution coordinator.
package queue

import (
	"sync"
	"time"

	"alpha-sniper/internal/models"
)

// DiscoveryEntry is the canonical record for one token identity.
type DiscoveryEntry struct {
	Signal     models.TokenSignal
	Confidence int
	FirstSeen  time.Time
	LastSeen   time.Time
}

// DiscoverySet keeps at most one entry per token mint: whichever signal
// carried the highest confidence within the retention window.
type DiscoverySet struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[string]*DiscoveryEntry
	now       func() time.Time
}

// NewDiscoverySet creates a set with the given retention window.
func NewDiscoverySet(retention time.Duration) *DiscoverySet {
	return &DiscoverySet{
		retention: retention,
		entries:   make(map[string]*DiscoveryEntry),
		now:       time.Now,
	}
}

// Observe records a signal and reports whether it is now the canonical
// entry for its mint. A duplicate with lower confidence is dropped and
// the existing entry survives.
func (d *DiscoverySet) Observe(signal models.TokenSignal, confidence int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	existing, ok := d.entries[signal.Mint]
	if !ok {
		d.entries[signal.Mint] = &DiscoveryEntry{
			Signal:     signal,
			Confidence: confidence,
			FirstSeen:  now,
			LastSeen:   now,
		}
		return true
	}

	existing.LastSeen = now
	if confidence > existing.Confidence {
		existing.Signal = signal
		existing.Confidence = confidence
		return true
	}
	return false
}

// Get returns the canonical entry for a mint, if tracked.
func (d *DiscoverySet) Get(mint string) (DiscoveryEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.entries[mint]
	if !ok {
		return DiscoveryEntry{}, false
	}
	return *entry, true
}

// Evict removes entries whose first sighting is older than the
// retention window. Returns the number evicted.
func (d *DiscoverySet) Evict() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-d.retention)
	evicted := 0
	for mint, entry := range d.entries {
		if entry.FirstSeen.Before(cutoff) {
			delete(d.entries, mint)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked tokens.
func (d *DiscoverySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
