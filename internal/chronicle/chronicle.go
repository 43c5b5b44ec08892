// Package chronicle keeps the global append-only record of notable
// events, consumed by observers and populated by every other component.
package chronicle

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one chronicle entry. Location is rounded to one decimal.
type Event struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Agent     string  `json:"agent"`
	Action    string  `json:"action"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Details   string  `json:"details"`
}

// Saver persists the full chronicle.
type Saver interface {
	SaveChronicle(events []Event) error
}

// Chronicle is the process-wide event log. Appends are safe for
// concurrent writers; each append is a single atomic operation.
type Chronicle struct {
	mu        sync.Mutex
	events    []Event
	saver     Saver
	observers []func(Event)
	now       func() float64
}

// New creates an empty chronicle. A nil saver keeps it in memory only.
func New(saver Saver) *Chronicle {
	return &Chronicle{
		saver: saver,
		now:   func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Restore replaces the log with previously persisted events.
func (c *Chronicle) Restore(events []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
}

// Observe registers a callback invoked for every appended event.
// Observers must not call back into the chronicle.
func (c *Chronicle) Observe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Add appends an event and returns it.
func (c *Chronicle) Add(agent, action string, x, y float64, details string) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: c.now(),
		Agent:     agent,
		Action:    action,
		X:         math.Round(x*10) / 10,
		Y:         math.Round(y*10) / 10,
		Details:   details,
	}

	c.mu.Lock()
	c.events = append(c.events, ev)
	saver := c.saver
	events := c.events
	observers := c.observers
	c.mu.Unlock()

	slog.Info("chronicle", "agent", agent, "action", action, "x", ev.X, "y", ev.Y, "details", details)

	if saver != nil {
		if err := saver.SaveChronicle(events); err != nil {
			slog.Error("chronicle save failed", "error", err)
		}
	}
	for _, fn := range observers {
		fn(ev)
	}
	return ev
}

// Recent returns the most recent limit events, oldest first.
func (c *Chronicle) Recent(limit int) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if len(c.events) > limit {
		start = len(c.events) - limit
	}
	out := make([]Event, len(c.events)-start)
	copy(out, c.events[start:])
	return out
}

// Len returns the total number of recorded events.
func (c *Chronicle) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
