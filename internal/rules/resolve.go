// Package rules validates player actions and applies them to a room.
//
// Every entry point works on a private clone of the room. The caller's room is
// never touched, so a rejected action leaves no trace.
package rules

import (
	"fmt"
	"time"

	"spacecouncil/internal/council"
	"spacecouncil/internal/fleet"
	"spacecouncil/internal/models"
)

// turn carries one action through validation and resolution
type turn struct {
	room   *models.Room
	idx    *fleet.Index
	ship   *models.Ship
	action models.Action
	now    time.Time
	log    models.LogEntry
	extra  []models.LogEntry
}

type resolveFunc func(t *turn) error

var resolvers = map[models.ActionType]resolveFunc{
	models.ActionMove:    resolveMove,
	models.ActionAttack:  resolveAttack,
	models.ActionDonate:  resolveDonate,
	models.ActionRecover: resolveRecover,
	models.ActionImprove: resolveImprove,
}

// Apply validates a against room and returns the updated copy. now must
// already be in the room's wall-clock location.
func Apply(room *models.Room, a models.Action, now time.Time) (*models.Room, error) {
	if room == nil {
		return nil, models.ErrRoomNotFound
	}
	if room.Status == models.StatusFinished {
		return nil, fmt.Errorf("%w: game is over", models.ErrState)
	}
	if a.Type == models.ActionVote {
		return applyVote(room, a, now)
	}
	resolve, ok := resolvers[a.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", models.ErrTarget, a.Type)
	}
	if !InWindow(room.ActionTimeWindows, now) {
		return nil, fmt.Errorf("%w: actions are only accepted during the room's time windows", models.ErrState)
	}

	next := room.Clone()
	ship := fleet.ShipByID(next, a.ShipID)
	if ship == nil {
		return nil, fmt.Errorf("%w: ship %s not found", models.ErrTarget, a.ShipID)
	}
	if ship.PlayerID != a.PlayerID {
		return nil, fmt.Errorf("%w: ship does not belong to you", models.ErrAuthorization)
	}
	if ship.Destroyed() {
		return nil, fmt.Errorf("%w: ship is destroyed", models.ErrState)
	}
	if ship.ActionPoints <= 0 {
		return nil, fmt.Errorf("%w: ship has no action points", models.ErrResource)
	}

	t := &turn{
		room:   next,
		idx:    fleet.NewIndex(next),
		ship:   ship,
		action: a,
		now:    now,
	}
	t.log = defaultLog(t)
	if err := resolve(t); err != nil {
		return nil, err
	}

	next.AppendLog(append([]models.LogEntry{t.log}, t.extra...)...)
	fleet.Sync(next)
	return next, nil
}

// Vote casts voterID's council ballot against targetID
func Vote(room *models.Room, voterID, targetID string, now time.Time) (*models.Room, error) {
	if room == nil {
		return nil, models.ErrRoomNotFound
	}
	if room.Status == models.StatusFinished {
		return nil, fmt.Errorf("%w: game is over", models.ErrState)
	}
	next := room.Clone()
	if err := council.CastVote(next, voterID, targetID, now); err != nil {
		return nil, err
	}
	fleet.Sync(next)
	return next, nil
}

// applyVote resolves the clicked cell to its owner and votes against them
func applyVote(room *models.Room, a models.Action, now time.Time) (*models.Room, error) {
	if a.Target == nil {
		return nil, fmt.Errorf("%w: vote needs a target cell", models.ErrTarget)
	}
	ship := fleet.NewIndex(room).LiveShipAt(*a.Target)
	if ship == nil {
		return nil, fmt.Errorf("%w: can only vote for an active ship", models.ErrTarget)
	}
	return Vote(room, a.PlayerID, ship.PlayerID, now)
}

// defaultLog records the action with a best-effort target id
func defaultLog(t *turn) models.LogEntry {
	entry := models.LogEntry{
		Timestamp: t.now,
		Action:    models.LogAction(t.action.Type),
		PlayerID:  t.action.PlayerID,
		Details:   &models.LogDetails{Type: string(t.ship.Type)},
	}
	if t.action.Points != nil {
		entry.Details.Points = models.IntPtr(*t.action.Points)
	}
	if t.action.Target != nil {
		pos := *t.action.Target
		entry.Details.Position = &pos
		entry.TargetID = t.idx.EntityAt(pos)
	}
	return entry
}

func requireTarget(t *turn) (models.Position, error) {
	if t.action.Target == nil {
		return models.Position{}, fmt.Errorf("%w: no target position given", models.ErrTarget)
	}
	return *t.action.Target, nil
}

func requireReach(t *turn, pos models.Position) error {
	if d := t.ship.Position.Distance(pos); d > t.ship.Reach {
		return fmt.Errorf("%w: distance %d exceeds reach %d", models.ErrRange, d, t.ship.Reach)
	}
	return nil
}
