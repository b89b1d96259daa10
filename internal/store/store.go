// Package store persists room documents with optimistic concurrency.
//
// Every room carries a version that increases on each successful Save. A Save
// whose expected version no longer matches fails with models.ErrConflict and
// the caller retries from a fresh Load.
package store

import (
	"context"

	"spacecouncil/internal/models"
)

// Store is the authoritative room document store
type Store interface {
	// Create inserts a new room at version 1
	Create(ctx context.Context, room *models.Room) error
	// Load returns a private copy of the room and its version
	Load(ctx context.Context, id string) (*models.Room, int64, error)
	// Save writes room if the stored version still equals version and
	// returns the new version
	Save(ctx context.Context, room *models.Room, version int64) (int64, error)
	// List returns every room id
	List(ctx context.Context) ([]string, error)
	// ListByPlayer returns summaries of the rooms playerID joined
	ListByPlayer(ctx context.Context, playerID string) ([]models.RoomSummary, error)
	Close() error
}
