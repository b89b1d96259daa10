// Package lifecycle moves a room through waiting, playing and finished.
package lifecycle

import (
	"fmt"
	"time"

	"spacecouncil/internal/fleet"
	"spacecouncil/internal/models"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	DefaultEndCondition = "AlivePlayers <= 4"
	DefaultMinPlayers   = 5
)

// Env is the data an end condition can read
type Env struct {
	AlivePlayers   int
	Players        int
	CouncilMembers int
}

// NewEnv summarizes room for condition evaluation
func NewEnv(room *models.Room) Env {
	return Env{
		AlivePlayers:   len(fleet.AlivePlayers(room)),
		Players:        len(room.Players),
		CouncilMembers: len(room.Council.MemberIDs),
	}
}

// Rule holds the compiled transition conditions
type Rule struct {
	src        string
	program    *vm.Program
	minPlayers int
}

// NewRule compiles endCondition into expr bytecode. A room starts playing once
// minPlayers have joined.
func NewRule(endCondition string, minPlayers int) (*Rule, error) {
	if endCondition == "" {
		endCondition = DefaultEndCondition
	}
	if minPlayers < 1 {
		return nil, fmt.Errorf("min players must be positive, got %d", minPlayers)
	}
	prog, err := expr.Compile(endCondition, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile end condition %q: %w", endCondition, err)
	}
	return &Rule{src: endCondition, program: prog, minPlayers: minPlayers}, nil
}

// MustDefault returns the stock rule set
func MustDefault() *Rule {
	r, err := NewRule(DefaultEndCondition, DefaultMinPlayers)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the end condition source
func (r *Rule) String() string {
	return r.src
}

// Ended evaluates the end condition against env
func (r *Rule) Ended(env Env) (bool, error) {
	out, err := vm.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate end condition: %w", err)
	}
	ended, _ := out.(bool)
	return ended, nil
}

// Advance applies every transition the room currently qualifies for and
// returns the resulting status.
func (r *Rule) Advance(room *models.Room, now time.Time) (models.Status, error) {
	if room.Status == "" {
		room.Status = models.StatusWaiting
	}
	if room.Status == models.StatusWaiting && len(room.Players) >= r.minPlayers {
		transition(room, models.StatusPlaying, now)
	}
	if room.Status == models.StatusPlaying {
		ended, err := r.Ended(NewEnv(room))
		if err != nil {
			return room.Status, err
		}
		if ended {
			transition(room, models.StatusFinished, now)
		}
	}
	return room.Status, nil
}

func transition(room *models.Room, to models.Status, now time.Time) {
	room.Status = to
	room.AppendLog(models.LogEntry{
		Timestamp: now,
		Action:    models.LogStatus,
		TargetID:  room.ID,
		Details:   &models.LogDetails{Type: string(to)},
	})
}
