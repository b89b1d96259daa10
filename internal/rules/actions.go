package rules

import (
	"fmt"

	"spacecouncil/internal/council"
	"spacecouncil/internal/fleet"
	"spacecouncil/internal/models"
)

func resolveMove(t *turn) error {
	pos, err := requireTarget(t)
	if err != nil {
		return err
	}
	if !t.room.GridSize.Contains(pos) {
		return fmt.Errorf("%w: %d,%d is outside the grid", models.ErrRange, pos.X, pos.Y)
	}
	if err := requireReach(t, pos); err != nil {
		return err
	}
	if t.idx.Occupied(pos, t.ship.ID) {
		return fmt.Errorf("%w: cell %d,%d is occupied", models.ErrOccupancy, pos.X, pos.Y)
	}

	t.ship.Position = pos
	t.ship.ActionPoints--
	return nil
}

func resolveAttack(t *turn) error {
	pos, err := requireTarget(t)
	if err != nil {
		return err
	}
	if err := requireReach(t, pos); err != nil {
		return err
	}
	if t.idx.DebrisAt(pos) != nil {
		return fmt.Errorf("%w: debris cannot be attacked", models.ErrTarget)
	}
	target := t.idx.ShipAt(pos)
	switch {
	case target == nil:
		return fmt.Errorf("%w: no target at %d,%d", models.ErrTarget, pos.X, pos.Y)
	case target.ID == t.ship.ID:
		return fmt.Errorf("%w: a ship cannot attack itself", models.ErrTarget)
	case target.Destroyed():
		return fmt.Errorf("%w: ship already destroyed", models.ErrTarget)
	}

	target.Health = max(0, target.Health-1)
	t.ship.ActionPoints--
	if !target.Destroyed() {
		return nil
	}

	t.log.Action = models.LogDestroy
	t.log.TargetID = target.ID

	if loot := target.ActionPoints; loot > 0 {
		target.ActionPoints = 0
		t.ship.ActionPoints += loot
		t.extra = append(t.extra, models.LogEntry{
			Timestamp: t.now,
			Action:    models.LogTransferAP,
			PlayerID:  t.action.PlayerID,
			TargetID:  target.PlayerID,
			Details: &models.LogDetails{
				Points:   models.IntPtr(loot),
				FromShip: target.ID,
				ToShip:   t.ship.ID,
			},
		})
	}

	if !fleet.HasLiveShip(t.room, target.PlayerID) {
		council.AddMember(t.room, target.PlayerID)
	}
	return nil
}

func resolveDonate(t *turn) error {
	pos, err := requireTarget(t)
	if err != nil {
		return err
	}
	target := t.idx.ShipAt(pos)
	if target == nil {
		return fmt.Errorf("%w: no ship at %d,%d", models.ErrTarget, pos.X, pos.Y)
	}
	if target.PlayerID == t.ship.PlayerID {
		return fmt.Errorf("%w: cannot donate to your own ship", models.ErrAuthorization)
	}
	if target.Destroyed() {
		return fmt.Errorf("%w: cannot donate to a destroyed ship", models.ErrTarget)
	}
	if err := requireReach(t, pos); err != nil {
		return err
	}

	target.ActionPoints++
	t.ship.ActionPoints--
	t.log.Details.Points = models.IntPtr(1)
	return nil
}

func resolveRecover(t *turn) error {
	if t.ship.ActionPoints < models.UpgradeCost {
		return fmt.Errorf("%w: recover needs %d points", models.ErrResource, models.UpgradeCost)
	}
	if t.ship.Health >= models.MaxHealth {
		return fmt.Errorf("%w: ship already at full health", models.ErrState)
	}
	t.ship.Health = min(models.MaxHealth, t.ship.Health+1)
	t.ship.ActionPoints -= models.UpgradeCost
	return nil
}

func resolveImprove(t *turn) error {
	if t.ship.ActionPoints < models.UpgradeCost {
		return fmt.Errorf("%w: improve needs %d points", models.ErrResource, models.UpgradeCost)
	}
	t.ship.Reach++
	t.ship.ActionPoints -= models.UpgradeCost
	return nil
}
