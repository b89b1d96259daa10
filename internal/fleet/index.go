package fleet

import (
	"errors"
	"math/rand/v2"

	"spacecouncil/internal/models"
)

// ErrGridFull is returned when no free cell remains for placement
var ErrGridFull = errors.New("no free cell on grid")

// Index answers occupancy queries over one room snapshot.
// It stores slice offsets so returned pointers alias the room's entities.
type Index struct {
	room   *models.Room
	ships  map[models.Position]int
	debris map[models.Position]int
}

// NewIndex builds a cell index for room. The index must be rebuilt after
// any ship changes position.
func NewIndex(room *models.Room) *Index {
	idx := &Index{
		room:   room,
		ships:  make(map[models.Position]int, len(room.Ships)),
		debris: make(map[models.Position]int, len(room.Debris)),
	}
	for i, s := range room.Ships {
		// a live ship wins the cell over a wreck left there
		if j, ok := idx.ships[s.Position]; ok && !room.Ships[j].Destroyed() {
			continue
		}
		idx.ships[s.Position] = i
	}
	for i, d := range room.Debris {
		idx.debris[d.Position] = i
	}
	return idx
}

// ShipAt returns any ship at pos, destroyed or not
func (idx *Index) ShipAt(pos models.Position) *models.Ship {
	i, ok := idx.ships[pos]
	if !ok {
		return nil
	}
	return &idx.room.Ships[i]
}

// LiveShipAt returns the ship at pos only if it has health left
func (idx *Index) LiveShipAt(pos models.Position) *models.Ship {
	s := idx.ShipAt(pos)
	if s == nil || s.Destroyed() {
		return nil
	}
	return s
}

// DebrisAt returns the debris at pos
func (idx *Index) DebrisAt(pos models.Position) *models.Debris {
	i, ok := idx.debris[pos]
	if !ok {
		return nil
	}
	return &idx.room.Debris[i]
}

// Occupied reports whether pos holds debris or a ship other than exceptShipID
func (idx *Index) Occupied(pos models.Position, exceptShipID string) bool {
	if _, ok := idx.debris[pos]; ok {
		return true
	}
	for _, s := range idx.room.Ships {
		if s.Position == pos && s.ID != exceptShipID {
			return true
		}
	}
	return false
}

// EntityAt returns the id of the ship or debris at pos, ships first
func (idx *Index) EntityAt(pos models.Position) string {
	if s := idx.ShipAt(pos); s != nil {
		return s.ID
	}
	if d := idx.DebrisAt(pos); d != nil {
		return d.ID
	}
	return ""
}

// RandomFreeCell picks a uniformly random unoccupied cell
func (idx *Index) RandomFreeCell(rng *rand.Rand) (models.Position, error) {
	grid := idx.room.GridSize
	free := make([]models.Position, 0, grid.Width*grid.Height)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			p := models.Position{X: x, Y: y}
			_, ship := idx.ships[p]
			_, rock := idx.debris[p]
			if !ship && !rock {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return models.Position{}, ErrGridFull
	}
	return free[rng.IntN(len(free))], nil
}
