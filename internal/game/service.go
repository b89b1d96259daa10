// Package game is the room session controller. It loads a room, runs the
// scheduler, the requested mutation, council resolution and the lifecycle
// rule against one private copy, and commits the result with a conditional
// write.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"spacecouncil/internal/council"
	"spacecouncil/internal/fleet"
	"spacecouncil/internal/lifecycle"
	"spacecouncil/internal/models"
	"spacecouncil/internal/rules"
	"spacecouncil/internal/scheduler"
	"spacecouncil/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	minDebris         = 2
	maxDebris         = 4
)

// Publisher receives every committed room
type Publisher interface {
	Publish(room *models.Room)
}

// Config holds the room defaults and commit policy
type Config struct {
	Grid       models.GridSize
	Windows    []models.TimeWindow
	Location   *time.Location
	MaxRetries int
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRand replaces the placement source
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithPublisher sets where committed rooms are announced
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// Service handles room sessions
type Service struct {
	store     store.Store
	rule      *lifecycle.Rule
	cfg       Config
	logger    *zap.Logger
	clock     func() time.Time
	publisher Publisher

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewService creates a new room service
func NewService(st store.Store, rule *lifecycle.Rule, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.Grid.Width <= 0 || cfg.Grid.Height <= 0 {
		cfg.Grid = models.GridSize{Width: models.DefaultWidth, Height: models.DefaultHeight}
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = rules.DefaultWindows
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if rule == nil {
		rule = lifecycle.MustDefault()
	}
	s := &Service{
		store:  st,
		rule:   rule,
		cfg:    cfg,
		logger: logger,
		clock:  time.Now,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock().In(s.cfg.Location)
}

// CreateRoom opens a room with the creator's ship and a few pieces of debris
func (s *Service) CreateRoom(ctx context.Context, name, creatorID, creatorName string, shipType models.ShipType, windows []models.TimeWindow) (*models.Room, error) {
	if creatorID == "" {
		return nil, fmt.Errorf("%w: player id required", models.ErrAuthorization)
	}
	if len(windows) == 0 {
		windows = s.cfg.Windows
	}
	if err := rules.ValidateWindows(windows); err != nil {
		return nil, err
	}

	now := s.now()
	id := uuid.New().String()[:8]
	if name == "" {
		name = "Sector " + id
	}
	room := &models.Room{
		ID:                    id,
		Name:                  name,
		GridSize:              s.cfg.Grid,
		Status:                models.StatusWaiting,
		CreatedAt:             now,
		CurrentTurn:           creatorID,
		ActionTimeWindows:     append([]models.TimeWindow(nil), windows...),
		LastPointDistribution: now,
		Council:               models.Council{Round: models.RoundOpen},
	}

	if err := s.seat(room, creatorID, creatorName, shipType, now); err != nil {
		return nil, err
	}
	if err := s.scatterDebris(room); err != nil {
		return nil, err
	}
	if err := s.settle(room, now); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("room created",
		zap.String("room", room.ID),
		zap.String("name", room.Name),
		zap.String("creator", creatorID))
	s.publish(room)
	return room, nil
}

// JoinRoom seats a player with one ship. Joining twice is a no-op.
func (s *Service) JoinRoom(ctx context.Context, roomID, playerID, playerName string, shipType models.ShipType) (*models.Room, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id required", models.ErrAuthorization)
	}
	return s.update(ctx, roomID, func(room *models.Room, now time.Time) (*models.Room, error) {
		if room.HasPlayer(playerID) {
			return nil, nil
		}
		if room.Status == models.StatusFinished {
			return nil, fmt.Errorf("%w: game is over", models.ErrState)
		}
		if err := s.seat(room, playerID, playerName, shipType, now); err != nil {
			return nil, err
		}
		return room, nil
	})
}

// PerformAction validates and applies one ship action
func (s *Service) PerformAction(ctx context.Context, roomID string, action models.Action) (*models.Room, error) {
	return s.update(ctx, roomID, func(room *models.Room, now time.Time) (*models.Room, error) {
		return rules.Apply(room, action, now)
	})
}

// VoteInCouncil records a council ballot and resolves the round when complete
func (s *Service) VoteInCouncil(ctx context.Context, roomID, voterID, targetPlayerID string) (*models.Room, error) {
	return s.update(ctx, roomID, func(room *models.Room, now time.Time) (*models.Room, error) {
		return rules.Vote(room, voterID, targetPlayerID, now)
	})
}

// Tick grants any point distributions that are due
func (s *Service) Tick(ctx context.Context, roomID string) (*models.Room, error) {
	return s.update(ctx, roomID, func(*models.Room, time.Time) (*models.Room, error) {
		return nil, nil
	})
}

// GetRoom returns the room, committing any distribution that is due first
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.Tick(ctx, roomID)
	if errors.Is(err, models.ErrConflict) {
		room, _, err = s.store.Load(ctx, roomID)
	}
	return room, err
}

// ListRooms returns summaries of the rooms playerID joined
func (s *Service) ListRooms(ctx context.Context, playerID string) ([]models.RoomSummary, error) {
	rooms, err := s.store.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []models.RoomSummary{}
	}
	return rooms, nil
}

// TickAll runs Tick across every stored room. Failures are logged and do not
// stop the sweep; the number of rooms ticked cleanly is returned.
func (s *Service) TickAll(ctx context.Context) (int, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	ok := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return ok, err
		}
		if _, err := s.Tick(ctx, id); err != nil {
			s.logger.Warn("tick failed", zap.String("room", id), zap.Error(err))
			continue
		}
		ok++
	}
	return ok, nil
}

type mutation func(room *models.Room, now time.Time) (*models.Room, error)

// update runs fn against a fresh copy of the room and commits it with the
// loaded version. Lost races are retried from a fresh load. A nil room from
// fn means fn changed nothing.
func (s *Service) update(ctx context.Context, roomID string, fn mutation) (*models.Room, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		room, version, err := s.store.Load(ctx, roomID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		granted := scheduler.Distribute(room, now)
		next, err := fn(room, now)
		if err != nil {
			return nil, err
		}
		if next == nil {
			if granted == 0 {
				return room, nil
			}
			next = room
		}
		if err := s.settle(next, now); err != nil {
			return nil, err
		}

		if _, err := s.store.Save(ctx, next, version); err != nil {
			if errors.Is(err, models.ErrConflict) {
				lastErr = err
				s.logger.Debug("room commit conflict, retrying",
					zap.String("room", roomID),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}
		if granted > 0 {
			s.logger.Info("points distributed", zap.String("room", roomID), zap.Int("days", granted))
		}
		s.publish(next)
		return next, nil
	}
	s.logger.Warn("room commit gave up", zap.String("room", roomID), zap.Error(lastErr))
	return nil, fmt.Errorf("room %s: %d attempts: %w", roomID, s.cfg.MaxRetries+1, lastErr)
}

// settle resolves a complete council round, advances the lifecycle and
// refreshes player aggregates
func (s *Service) settle(room *models.Room, now time.Time) error {
	if target := council.Resolve(room, now); target != "" {
		s.logger.Info("player eliminated by council", zap.String("room", room.ID), zap.String("player", target))
	}
	before := room.Status
	status, err := s.rule.Advance(room, now)
	if err != nil {
		return err
	}
	if status != before {
		s.logger.Info("room status changed",
			zap.String("room", room.ID),
			zap.String("from", string(before)),
			zap.String("to", string(status)))
	}
	fleet.Sync(room)
	return nil
}

// seat adds a player and their first ship at a random free cell
func (s *Service) seat(room *models.Room, playerID, playerName string, shipType models.ShipType, now time.Time) error {
	if shipType == "" {
		shipType = models.Fighter
	}
	if playerName == "" {
		playerName = playerID
	}
	cell, err := s.freeCell(room)
	if err != nil {
		return err
	}
	ship, err := fleet.NewShip(shipType, playerID, cell)
	if err != nil {
		return err
	}
	room.Ships = append(room.Ships, ship)
	room.Players = append(room.Players, models.Player{
		ID:       playerID,
		Name:     playerName,
		Alive:    true,
		JoinedAt: now,
	})
	room.AppendLog(models.LogEntry{
		Timestamp: now,
		Action:    models.LogJoin,
		PlayerID:  playerID,
		TargetID:  ship.ID,
		Details:   &models.LogDetails{Type: string(shipType), Position: &cell},
	})
	return nil
}

func (s *Service) scatterDebris(room *models.Room) error {
	s.rngMu.Lock()
	n := minDebris + s.rng.IntN(maxDebris-minDebris+1)
	s.rngMu.Unlock()

	for range n {
		cell, err := s.freeCell(room)
		if err != nil {
			return err
		}
		s.rngMu.Lock()
		kind := fleet.RandomDebrisType(s.rng)
		s.rngMu.Unlock()
		room.Debris = append(room.Debris, fleet.NewDebris(kind, cell))
	}
	return nil
}

func (s *Service) freeCell(room *models.Room) (models.Position, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	cell, err := fleet.NewIndex(room).RandomFreeCell(s.rng)
	if err != nil {
		return models.Position{}, fmt.Errorf("%w: %w", models.ErrOccupancy, err)
	}
	return cell, nil
}

func (s *Service) publish(room *models.Room) {
	if s.publisher != nil {
		s.publisher.Publish(room)
	}
}
