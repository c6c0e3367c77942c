// internal/domain/pipeline/schedule.go
package pipeline

import (
	"fmt"
	"time"
)

// ScheduleState holds the per-day idempotency flags of the daily scheduler.
// Both flags are cleared whenever the current minute is outside the trigger window.
type ScheduleState struct {
	Refreshed bool
	Sent      bool
}

// Reset re-arms both triggers for the next occurrence.
func (s *ScheduleState) Reset() {
	s.Refreshed = false
	s.Sent = false
}

// TriggerTime is a wall-clock hour:minute evaluated in the scheduler's timezone.
type TriggerTime struct {
	Hour   int
	Minute int
}

// ParseTriggerTime parses "HH:MM" (24h).
func ParseTriggerTime(value string) (TriggerTime, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return TriggerTime{}, fmt.Errorf("invalid trigger time %q, expected HH:MM: %w", value, err)
	}
	return TriggerTime{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// Matches reports whether t falls inside this trigger minute. t must already be in the target zone.
func (tt TriggerTime) Matches(t time.Time) bool {
	return t.Hour() == tt.Hour && t.Minute() == tt.Minute
}

// Next returns the trigger minute that follows tt, wrapping at midnight.
func (tt TriggerTime) Next() TriggerTime {
	total := (tt.Hour*60 + tt.Minute + 1) % (24 * 60)
	return TriggerTime{Hour: total / 60, Minute: total % 60}
}

func (tt TriggerTime) String() string {
	return fmt.Sprintf("%02d:%02d", tt.Hour, tt.Minute)
}
