// Package scheduler grants daily action points to every ship in a room.
package scheduler

import (
	"time"

	"spacecouncil/internal/models"
)

// Day is the distribution period
const Day = 24 * time.Hour

// DaysDue returns the whole periods elapsed since the last distribution.
// A zero timestamp counts from the Unix epoch.
func DaysDue(room *models.Room, now time.Time) int {
	last := room.LastPointDistribution
	if last.IsZero() {
		last = time.Unix(0, 0).UTC()
	}
	if !now.After(last) {
		return 0
	}
	return int(now.Sub(last) / Day)
}

// Distribute grants the points due and advances the distribution mark by
// whole days so partial days carry over. It returns the points granted per ship.
func Distribute(room *models.Room, now time.Time) int {
	if room.Status == models.StatusFinished {
		return 0
	}
	days := DaysDue(room, now)
	if days < 1 {
		return 0
	}

	last := room.LastPointDistribution
	if last.IsZero() {
		last = time.Unix(0, 0).UTC()
	}
	room.LastPointDistribution = last.Add(time.Duration(days) * Day)

	entries := make([]models.LogEntry, 0, len(room.Ships))
	for i := range room.Ships {
		s := &room.Ships[i]
		s.ActionPoints += days
		entries = append(entries, models.LogEntry{
			Timestamp: now,
			Action:    models.LogPointDistribution,
			PlayerID:  s.PlayerID,
			Details: &models.LogDetails{
				Points: models.IntPtr(days),
				Type:   string(s.Type),
			},
		})
	}
	room.AppendLog(entries...)
	return days
}
