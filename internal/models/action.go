package models

// ActionType is the kind of a submitted action
type ActionType string

const (
	ActionMove    ActionType = "MOVE"
	ActionAttack  ActionType = "ATTACK"
	ActionDonate  ActionType = "DONATE"
	ActionRecover ActionType = "RECOVER"
	ActionImprove ActionType = "IMPROVE"
	ActionVote    ActionType = "VOTE"
)

// Action represents a player's request against a room
type Action struct {
	Type     ActionType `json:"type"`
	ShipID   string     `json:"shipId"`
	PlayerID string     `json:"playerId"`
	Target   *Position  `json:"target,omitempty"`
	Points   *int       `json:"points,omitempty"`
}
