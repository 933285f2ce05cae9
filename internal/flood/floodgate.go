// Package flood provides per-room rate limiting for voice commands.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for flood detection (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle room entries
	idleTimeout = 10 * time.Minute
)

// Floodgate limits how many commands each room may issue per minute
// with a sliding window. A misbehaving intent source in one room cannot
// starve the others.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*roomEntry
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
}

// roomEntry tracks command timestamps for one room
type roomEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate allowing limitPerMinute commands per room.
// The time window is fixed at 60 seconds.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*roomEntry),
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	close(fg.stopCleanup)
}

// Allow reports whether the room is still within its per-minute budget
// and, if so, counts the command against it.
func (fg *Floodgate) Allow(room string) bool {
	now := time.Now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[room]
	if !exists {
		entry = &roomEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[room] = entry
	}

	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	validTimestamps := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// cleanup removes idle room entries to prevent memory leaks
func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for room, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, room)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveRooms:    len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveRooms    int `json:"active_rooms"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
