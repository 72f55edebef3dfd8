package reminder

import (
	"errors"
	"fmt"
	"time"

	"visualroutine/internal/validation"
)

const (
	// GraceWindow is how far in the past a time of day may be and still fire almost immediately
	GraceWindow = 5 * time.Minute

	// GraceDelay is the delay used for a reminder that falls inside the grace window
	GraceDelay = time.Minute
)

// ErrInvalidTimeOfDay is returned when a time of day is not HH:MM
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// Resolve computes the next concrete instant for an HH:MM time of day.
//
// Today's occurrence is used when it is now or later. An occurrence missed by more than
// GraceWindow rolls to tomorrow. An occurrence missed by at most GraceWindow (inclusive)
// is replaced by now + GraceDelay.
func Resolve(timeOfDay string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	behind := now.Sub(today)

	switch {
	case behind <= 0:
		return today, nil
	case behind > GraceWindow:
		return time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location()), nil
	default:
		return now.Add(GraceDelay), nil
	}
}

// ParseTimeOfDay splits an HH:MM string into hour and minute
func ParseTimeOfDay(timeOfDay string) (int, int, error) {
	if err := validation.ValidateTimeOfDay(timeOfDay); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidTimeOfDay, err)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, timeOfDay)
	}
	return hour, minute, nil
}

// FormatTimeOfDay renders an instant's wall-clock time as HH:MM
func FormatTimeOfDay(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
