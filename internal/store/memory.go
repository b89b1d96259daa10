package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spacecouncil/internal/models"
)

type record struct {
	room    *models.Room
	version int64
}

// Memory keeps rooms in process
type Memory struct {
	rooms map[string]*record
	mu    sync.RWMutex
}

// NewMemory creates an empty in-process store
func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]*record),
	}
}

func (m *Memory) Create(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.ID]; exists {
		return fmt.Errorf("%w: room %s already exists", models.ErrConflict, room.ID)
	}
	m.rooms[room.ID] = &record{room: room.Clone(), version: 1}
	return nil
}

func (m *Memory) Load(ctx context.Context, id string) (*models.Room, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.rooms[id]
	if !exists {
		return nil, 0, models.ErrRoomNotFound
	}
	return rec.room.Clone(), rec.version, nil
}

func (m *Memory) Save(ctx context.Context, room *models.Room, version int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.rooms[room.ID]
	if !exists {
		return 0, models.ErrRoomNotFound
	}
	if rec.version != version {
		return 0, fmt.Errorf("%w: room %s is at version %d, not %d", models.ErrConflict, room.ID, rec.version, version)
	}
	rec.room = room.Clone()
	rec.version++
	return rec.version, nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) ListByPlayer(ctx context.Context, playerID string) ([]models.RoomSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.RoomSummary
	for _, rec := range m.rooms {
		if rec.room.HasPlayer(playerID) {
			out = append(out, rec.room.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
