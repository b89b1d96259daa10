package fleet

import (
	"fmt"
	"math/rand/v2"

	"spacecouncil/internal/models"

	"github.com/google/uuid"
)

var debrisHealth = map[models.DebrisType]int{
	models.Asteroid:  50,
	models.Satellite: 30,
}

// NewShip creates a ship with base stats for playerID at pos
func NewShip(t models.ShipType, playerID string, pos models.Position) (models.Ship, error) {
	if !t.Valid() {
		return models.Ship{}, fmt.Errorf("%w: unknown ship type %q", models.ErrTarget, t)
	}
	return models.Ship{
		ID:           uuid.New().String(),
		PlayerID:     playerID,
		Type:         t,
		Position:     pos,
		Health:       models.MaxHealth,
		ActionPoints: models.BaseAP,
		Reach:        models.BaseReach,
	}, nil
}

// NewDebris creates an obstacle at pos
func NewDebris(t models.DebrisType, pos models.Position) models.Debris {
	return models.Debris{
		ID:       uuid.New().String(),
		Type:     t,
		Position: pos,
		Health:   debrisHealth[t],
	}
}

// RandomDebrisType picks asteroid or satellite with equal odds
func RandomDebrisType(rng *rand.Rand) models.DebrisType {
	if rng.IntN(2) == 0 {
		return models.Asteroid
	}
	return models.Satellite
}

// ShipByID returns the ship with the given id
func ShipByID(room *models.Room, id string) *models.Ship {
	for i := range room.Ships {
		if room.Ships[i].ID == id {
			return &room.Ships[i]
		}
	}
	return nil
}

// LiveShips returns the player's ships with health left
func LiveShips(room *models.Room, playerID string) []*models.Ship {
	var out []*models.Ship
	for i := range room.Ships {
		s := &room.Ships[i]
		if s.PlayerID == playerID && !s.Destroyed() {
			out = append(out, s)
		}
	}
	return out
}

// HasLiveShip reports whether the player still has a fleet
func HasLiveShip(room *models.Room, playerID string) bool {
	for _, s := range room.Ships {
		if s.PlayerID == playerID && !s.Destroyed() {
			return true
		}
	}
	return false
}

// AlivePlayers returns ids of players with a live ship, in join order
func AlivePlayers(room *models.Room) []string {
	var out []string
	for _, p := range room.Players {
		if HasLiveShip(room, p.ID) {
			out = append(out, p.ID)
		}
	}
	return out
}

// Sync recomputes the informational per-player aggregates
func Sync(room *models.Room) {
	for i := range room.Players {
		p := &room.Players[i]
		p.ActionPoints = 0
		p.Alive = false
		for _, s := range room.Ships {
			if s.PlayerID != p.ID {
				continue
			}
			p.ActionPoints += s.ActionPoints
			if !s.Destroyed() {
				p.Alive = true
			}
		}
	}
}
