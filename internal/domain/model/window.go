package model

import (
	"fmt"
	"time"
)

// Window is a half-open time interval [Start, End) used to join coverage
// rollups with impact signals.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowAt returns the window of the given size containing t, aligned to
// multiples of size since the Unix epoch in UTC.
func WindowAt(t time.Time, size time.Duration) Window {
	start := t.UTC().Truncate(size)
	return Window{Start: start, End: start.Add(size)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Prev returns the window immediately preceding this one.
func (w Window) Prev() Window {
	size := w.End.Sub(w.Start)
	return Window{Start: w.Start.Add(-size), End: w.Start}
}

// Key returns a stable string key for map lookups and persistence.
func (w Window) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.Unix(), w.End.Unix())
}
