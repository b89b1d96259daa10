package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spacecouncil/internal/models"

	"go.uber.org/zap/zaptest"
)

func sampleRoom(id string) *models.Room {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Room{
		ID:        id,
		Name:      "Sector " + id,
		Status:    models.StatusWaiting,
		CreatedAt: now,
		GridSize:  models.GridSize{Width: 15, Height: 15},
		Players: []models.Player{
			{ID: "p1", Name: "Ada", ActionPoints: 1, Alive: true, JoinedAt: now},
		},
		Ships: []models.Ship{
			{ID: "s1", PlayerID: "p1", Type: models.Scout, Position: models.Position{X: 3, Y: 4}, Health: 3, ActionPoints: 1, Reach: 2},
		},
		Debris:            []models.Debris{{ID: "d1", Type: models.Asteroid, Position: models.Position{X: 1, Y: 1}, Health: 50}},
		ActionTimeWindows: []models.TimeWindow{{Start: "00:00", End: "23:59"}},
		Logs: []models.LogEntry{
			{Timestamp: now, Action: models.LogJoin, PlayerID: "p1", Details: &models.LogDetails{Type: "scout"}},
		},
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "rooms.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func TestStoreOptimisticSave(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Create(ctx, sampleRoom("r1")); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := s.Create(ctx, sampleRoom("r1")); !errors.Is(err, models.ErrConflict) {
				t.Fatalf("duplicate create err = %v, want conflict", err)
			}

			a, va, err := s.Load(ctx, "r1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			b, vb, _ := s.Load(ctx, "r1")
			if va != 1 || vb != 1 {
				t.Fatalf("versions = %d, %d, want 1", va, vb)
			}

			a.Ships[0].Position = models.Position{X: 4, Y: 4}
			next, err := s.Save(ctx, a, va)
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if next != 2 {
				t.Errorf("version after save = %d, want 2", next)
			}

			b.Ships[0].Health = 1
			if _, err := s.Save(ctx, b, vb); !errors.Is(err, models.ErrConflict) {
				t.Fatalf("stale save err = %v, want conflict", err)
			}

			got, v, err := s.Load(ctx, "r1")
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if v != 2 {
				t.Errorf("reloaded version = %d", v)
			}
			if got.Ships[0].Position != (models.Position{X: 4, Y: 4}) || got.Ships[0].Health != 3 {
				t.Errorf("stale write leaked: %+v", got.Ships[0])
			}
			if !got.CreatedAt.Equal(a.CreatedAt) {
				t.Errorf("createdAt = %v, want %v", got.CreatedAt, a.CreatedAt)
			}
			if len(got.Logs) != 1 || got.Logs[0].Details.Type != "scout" {
				t.Errorf("logs not preserved: %+v", got.Logs)
			}
		})
	}
}

func TestStoreMissingRoom(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := s.Load(ctx, "nope"); !errors.Is(err, models.ErrRoomNotFound) {
				t.Errorf("load err = %v", err)
			}
			if _, err := s.Save(ctx, sampleRoom("nope"), 1); !errors.Is(err, models.ErrRoomNotFound) {
				t.Errorf("save err = %v", err)
			}
		})
	}
}

func TestStoreListings(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"b", "a"} {
				if err := s.Create(ctx, sampleRoom(id)); err != nil {
					t.Fatal(err)
				}
			}
			r, v, _ := s.Load(ctx, "b")
			r.Players = append(r.Players, models.Player{ID: "p2", Name: "Bo", Alive: true})
			if _, err := s.Save(ctx, r, v); err != nil {
				t.Fatal(err)
			}

			ids, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
				t.Errorf("List = %v", ids)
			}

			mine, err := s.ListByPlayer(ctx, "p2")
			if err != nil {
				t.Fatal(err)
			}
			if len(mine) != 1 || mine[0].ID != "b" || mine[0].Players != 2 {
				t.Errorf("ListByPlayer(p2) = %+v", mine)
			}
			all, _ := s.ListByPlayer(ctx, "p1")
			if len(all) != 2 {
				t.Errorf("ListByPlayer(p1) = %+v", all)
			}
			none, _ := s.ListByPlayer(ctx, "ghost")
			if len(none) != 0 {
				t.Errorf("ListByPlayer(ghost) = %+v", none)
			}
		})
	}
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	r := sampleRoom("r1")
	m.Create(ctx, r)
	r.Name = "mutated"

	got, _, _ := m.Load(ctx, "r1")
	if got.Name != "Sector r1" {
		t.Errorf("store aliases caller room: %q", got.Name)
	}
	got.Ships[0].Health = 0
	again, _, _ := m.Load(ctx, "r1")
	if again.Ships[0].Health != 3 {
		t.Error("store aliases loaded room")
	}
}

func TestCodec(t *testing.T) {
	r := sampleRoom("r1")
	blob, err := Encode(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID || len(got.Ships) != 1 || got.Ships[0].Reach != 2 || got.Debris[0].Health != 50 {
		t.Errorf("decoded room = %+v", got)
	}

	d1, _ := Digest(r)
	d2, _ := Digest(r.Clone())
	if d1 != d2 {
		t.Error("digest is not stable for equal rooms")
	}
	r.Ships[0].Health = 2
	d3, _ := Digest(r)
	if d3 == d1 {
		t.Error("digest did not change with content")
	}

	if _, err := Decode([]byte("not a document")); err == nil {
		t.Error("decode of garbage succeeded")
	}
}
