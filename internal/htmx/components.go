package htmx

import (
	"context"
	"fmt"
	"io"

	"spacecouncil/internal/models"

	"github.com/a-h/templ"
)

// playerName resolves a player id, or a ship id to its owner
func playerName(room *models.Room, id string) string {
	if p := room.Player(id); p != nil && p.Name != "" {
		return p.Name
	}
	for _, s := range room.Ships {
		if s.ID == id {
			if p := room.Player(s.PlayerID); p != nil && p.Name != "" {
				return p.Name
			}
		}
	}
	if len(id) > 4 {
		id = id[:4]
	}
	return "Player " + id
}

func points(l models.LogEntry) int {
	if l.Details != nil && l.Details.Points != nil {
		return *l.Details.Points
	}
	return 0
}

// Describe renders one log entry as a sentence
func Describe(room *models.Room, l models.LogEntry) string {
	who := playerName(room, l.PlayerID)
	switch l.Action {
	case models.LogMove:
		if l.Details != nil && l.Details.Position != nil {
			return fmt.Sprintf("%s's ship moved to (%d, %d)", who, l.Details.Position.X, l.Details.Position.Y)
		}
		return who + "'s ship moved"
	case models.LogAttack:
		return fmt.Sprintf("%s's ship attacked %s's ship", who, playerName(room, l.TargetID))
	case models.LogDestroy:
		return fmt.Sprintf("%s destroyed a ship of %s", who, playerName(room, l.TargetID))
	case models.LogTransferAP:
		return fmt.Sprintf("%s looted %d AP from %s", who, points(l), playerName(room, l.TargetID))
	case models.LogDonate:
		return fmt.Sprintf("%s donated %d AP to %s", who, points(l), playerName(room, l.TargetID))
	case models.LogRecover:
		return who + " repaired a ship"
	case models.LogImprove:
		return who + " extended a ship's reach"
	case models.LogPointDistribution:
		return fmt.Sprintf("Points distributed: %s received %d AP", who, points(l))
	case models.LogVote:
		return fmt.Sprintf("%s voted against %s", who, playerName(room, l.TargetID))
	case models.LogEliminate:
		return fmt.Sprintf("The council eliminated %s", who)
	case models.LogJoin:
		return who + " joined the battle"
	case models.LogStatus:
		if l.Details != nil {
			return "Game is now " + l.Details.Type
		}
	}
	return "Unknown action"
}

// LogFeed lists the room's log, newest first
func LogFeed(room *models.Room) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		logs := room.SortedLogs(true)
		if len(logs) == 0 {
			_, err := io.WriteString(w, `<p class="log-empty">No actions recorded yet.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<ul class="game-log">`); err != nil {
			return err
		}
		for _, l := range logs {
			_, err := fmt.Fprintf(w, `<li class="log-entry log-%s"><time>%s</time> %s</li>`,
				templ.EscapeString(string(l.Action)),
				l.Timestamp.Format("15:04:05"),
				templ.EscapeString(Describe(room, l)))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

// LogPanel wraps LogFeed in an SSE subscription for live updates
func LogPanel(room *models.Room) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div hx-ext="sse" sse-connect="/htmx/sse/%s" sse-swap="log-update" hx-swap="innerHTML" data-room-id="%s">`,
			templ.EscapeString(room.ID), templ.EscapeString(room.ID))
		if err != nil {
			return err
		}
		if err := LogFeed(room).Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</div>`)
		return err
	})
}

// ErrorStatus renders a failed request inline
func ErrorStatus(msg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="status" id="status">&gt; error: %s</div>`, templ.EscapeString(msg))
		return err
	})
}
