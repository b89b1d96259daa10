package models

import "time"

// Status is the room lifecycle state
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// ShipType identifies a hull class. All classes share base stats.
type ShipType string

const (
	Fighter   ShipType = "fighter"
	Cruiser   ShipType = "cruiser"
	Destroyer ShipType = "destroyer"
	Scout     ShipType = "scout"
)

// Valid reports whether t is a known hull class
func (t ShipType) Valid() bool {
	switch t {
	case Fighter, Cruiser, Destroyer, Scout:
		return true
	}
	return false
}

// DebrisType identifies an obstacle kind
type DebrisType string

const (
	Asteroid  DebrisType = "asteroid"
	Satellite DebrisType = "satellite"
)

// Ship base stats
const (
	MaxHealth     = 3
	BaseReach     = 2
	BaseAP        = 1
	UpgradeCost   = 3
	DefaultWidth  = 15
	DefaultHeight = 15
)

// Position is a cell on the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Chebyshev distance between two cells
func (p Position) Distance(o Position) int {
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// GridSize is the board dimension
type GridSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether p lies inside the grid
func (g GridSize) Contains(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.Width && p.Y < g.Height
}

// Ship is a player-owned unit on the board
type Ship struct {
	ID           string   `json:"id"`
	PlayerID     string   `json:"playerId"`
	Type         ShipType `json:"type"`
	Position     Position `json:"position"`
	Health       int      `json:"health"`
	ActionPoints int      `json:"actionPoints"`
	Reach        int      `json:"reach"`
}

// Destroyed reports whether the ship has no health left
func (s *Ship) Destroyed() bool {
	return s.Health <= 0
}

// Debris is a permanent obstacle
type Debris struct {
	ID       string     `json:"id"`
	Type     DebrisType `json:"type"`
	Position Position   `json:"position"`
	Health   int        `json:"health"`
}

// Player is a room participant
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ActionPoints int       `json:"actionPoints"`
	Alive        bool      `json:"isAlive"`
	VotedFor     string    `json:"votedFor,omitempty"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Vote is one council ballot
type Vote struct {
	PlayerID   string `json:"playerId"`
	VotedFor   string `json:"votedFor"`
	VoteWeight int    `json:"voteWeight"`
}

// Round is the council voting round state
type Round string

const (
	RoundOpen     Round = "open"
	RoundResolved Round = "resolved"
)

// Council holds the players who lost their fleet and their ballots
type Council struct {
	MemberIDs    []string  `json:"memberIds"`
	Votes        []Vote    `json:"votes"`
	Round        Round     `json:"round"`
	LastVoteTime time.Time `json:"lastVoteTime"`
}

// TimeWindow is a daily HH:MM interval during which actions are accepted
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Room is the authoritative game document
type Room struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Players               []Player     `json:"players"`
	GridSize              GridSize     `json:"gridSize"`
	Status                Status       `json:"status"`
	CreatedAt             time.Time    `json:"createdAt"`
	CurrentTurn           string       `json:"currentTurn"`
	Ships                 []Ship       `json:"ships"`
	Debris                []Debris     `json:"debris"`
	ActionTimeWindows     []TimeWindow `json:"actionTimeWindows"`
	LastPointDistribution time.Time    `json:"lastPointDistribution"`
	Council               Council      `json:"council"`
	Logs                  []LogEntry   `json:"logs"`
}

// Player returns the participant with the given id
func (r *Room) Player(id string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// HasPlayer reports whether id already joined the room
func (r *Room) HasPlayer(id string) bool {
	return r.Player(id) != nil
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Players = append([]Player(nil), r.Players...)
	c.Ships = append([]Ship(nil), r.Ships...)
	c.Debris = append([]Debris(nil), r.Debris...)
	c.ActionTimeWindows = append([]TimeWindow(nil), r.ActionTimeWindows...)
	c.Council.MemberIDs = append([]string(nil), r.Council.MemberIDs...)
	c.Council.Votes = append([]Vote(nil), r.Council.Votes...)
	if r.Logs != nil {
		c.Logs = make([]LogEntry, len(r.Logs))
		for i, l := range r.Logs {
			c.Logs[i] = l.clone()
		}
	}
	return &c
}

// RoomSummary is the lightweight listing entry for a room
type RoomSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Players int    `json:"players"`
}

// Summary returns the listing entry for the room
func (r *Room) Summary() RoomSummary {
	return RoomSummary{ID: r.ID, Name: r.Name, Status: r.Status, Players: len(r.Players)}
}
