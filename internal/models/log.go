package models

import (
	"sort"
	"time"
)

// LogAction names a game log record kind
type LogAction string

const (
	LogMove              LogAction = "MOVE"
	LogAttack            LogAction = "ATTACK"
	LogDestroy           LogAction = "DESTROY"
	LogTransferAP        LogAction = "TRANSFER_AP"
	LogDonate            LogAction = "DONATE"
	LogRecover           LogAction = "RECOVER"
	LogImprove           LogAction = "IMPROVE"
	LogVote              LogAction = "VOTE"
	LogEliminate         LogAction = "ELIMINATE"
	LogPointDistribution LogAction = "POINT_DISTRIBUTION"
	LogJoin              LogAction = "JOIN"
	LogStatus            LogAction = "STATUS"
)

// LogDetails is the optional payload of a log entry
type LogDetails struct {
	Points   *int      `json:"points,omitempty"`
	Position *Position `json:"position,omitempty"`
	Type     string    `json:"type,omitempty"`
	FromShip string    `json:"fromShip,omitempty"`
	ToShip   string    `json:"toShip,omitempty"`
}

// LogEntry is an immutable game log record
type LogEntry struct {
	Seq       int         `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Action    LogAction   `json:"action"`
	PlayerID  string      `json:"playerId"`
	TargetID  string      `json:"targetId,omitempty"`
	Details   *LogDetails `json:"details,omitempty"`
}

func (l LogEntry) clone() LogEntry {
	if l.Details == nil {
		return l
	}
	d := *l.Details
	if d.Points != nil {
		p := *d.Points
		d.Points = &p
	}
	if d.Position != nil {
		p := *d.Position
		d.Position = &p
	}
	l.Details = &d
	return l
}

// IntPtr is a helper for optional detail fields
func IntPtr(v int) *int {
	return &v
}

// AppendLog stamps entries with the next sequence numbers and appends them
func (r *Room) AppendLog(entries ...LogEntry) {
	next := 0
	if n := len(r.Logs); n > 0 {
		next = r.Logs[n-1].Seq + 1
	}
	for _, e := range entries {
		e.Seq = next
		next++
		r.Logs = append(r.Logs, e)
	}
}

// SortedLogs returns the log ordered by timestamp, ties by insertion order.
// newestFirst reverses the order for display.
func (r *Room) SortedLogs(newestFirst bool) []LogEntry {
	out := append([]LogEntry(nil), r.Logs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if newestFirst {
				return a.Timestamp.After(b.Timestamp)
			}
			return a.Timestamp.Before(b.Timestamp)
		}
		if newestFirst {
			return a.Seq > b.Seq
		}
		return a.Seq < b.Seq
	})
	return out
}
