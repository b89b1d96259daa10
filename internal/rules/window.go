package rules

import (
	"fmt"
	"time"

	"spacecouncil/internal/models"
)

// DefaultWindows keeps the room open all day
var DefaultWindows = []models.TimeWindow{{Start: "00:00", End: "23:59"}}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q, want HH:MM", models.ErrState, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateWindows checks every window parses as HH:MM
func ValidateWindows(windows []models.TimeWindow) error {
	for _, w := range windows {
		if _, err := parseClock(w.Start); err != nil {
			return err
		}
		if _, err := parseClock(w.End); err != nil {
			return err
		}
	}
	return nil
}

// InWindow reports whether the wall-clock minute of now falls inside any
// window, inclusive at both ends. A window whose end precedes its start spans
// midnight.
func InWindow(windows []models.TimeWindow, now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()
	for _, w := range windows {
		start, err := parseClock(w.Start)
		if err != nil {
			continue
		}
		end, err := parseClock(w.End)
		if err != nil {
			continue
		}
		if start <= end {
			if minute >= start && minute <= end {
				return true
			}
		} else if minute >= start || minute <= end {
			return true
		}
	}
	return false
}
