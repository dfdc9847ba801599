package ui

import (
	"fmt"
	"time"
)

// Timer measures the duration of a run
type Timer struct {
	Label     string
	StartTime time.Time
	now       func() time.Time
}

// NewTimer starts a timer
func NewTimer(label string) *Timer {
	return newTimerAt(label, time.Now)
}

func newTimerAt(label string, now func() time.Time) *Timer {
	return &Timer{
		Label:     label,
		StartTime: now(),
		now:       now,
	}
}

// GetElapsedTime returns the elapsed time since the timer started
func (t *Timer) GetElapsedTime() time.Duration {
	return t.now().Sub(t.StartTime)
}

// String formats the timer as "<label> <elapsed>"
func (t *Timer) String() string {
	return fmt.Sprintf("%s %s", t.Label, FormatDuration(t.GetElapsedTime()))
}

// FormatDuration rounds d for display
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// PrintTimer prints the timer line
func (c *Console) PrintTimer(t *Timer) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", c.render(c.label, t.Label), c.render(c.value, FormatDuration(t.GetElapsedTime())))
}
