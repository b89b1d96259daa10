// Package council implements the elimination vote held by players who lost
// their fleet.
package council

import (
	"fmt"
	"math"
	"slices"
	"time"

	"spacecouncil/internal/fleet"
	"spacecouncil/internal/models"
)

const (
	firstMemberWeight = 3
	memberWeight      = 1
)

// IsMember reports whether playerID sits on the council
func IsMember(room *models.Room, playerID string) bool {
	return slices.Contains(room.Council.MemberIDs, playerID)
}

// AddMember seats playerID on the council. It returns false if already seated.
func AddMember(room *models.Room, playerID string) bool {
	if IsMember(room, playerID) {
		return false
	}
	room.Council.MemberIDs = append(room.Council.MemberIDs, playerID)
	if room.Council.Round == "" {
		room.Council.Round = models.RoundOpen
	}
	return true
}

// Weight returns the ballot weight of a member. The first player ever seated
// keeps the heavier vote for the whole game.
func Weight(room *models.Room, playerID string) int {
	if len(room.Council.MemberIDs) > 0 && room.Council.MemberIDs[0] == playerID {
		return firstMemberWeight
	}
	return memberWeight
}

// HasVoted reports whether playerID already cast a ballot this round
func HasVoted(room *models.Room, playerID string) bool {
	return slices.ContainsFunc(room.Council.Votes, func(v models.Vote) bool {
		return v.PlayerID == playerID
	})
}

// CastVote records voterID's ballot against targetID
func CastVote(room *models.Room, voterID, targetID string, now time.Time) error {
	if !IsMember(room, voterID) {
		return fmt.Errorf("%w: only council members can vote", models.ErrAuthorization)
	}
	if HasVoted(room, voterID) {
		return fmt.Errorf("%w: already voted this round", models.ErrState)
	}
	if !room.HasPlayer(targetID) || !fleet.HasLiveShip(room, targetID) {
		return fmt.Errorf("%w: can only vote for a player with an active ship", models.ErrTarget)
	}

	weight := Weight(room, voterID)
	room.Council.Votes = append(room.Council.Votes, models.Vote{
		PlayerID:   voterID,
		VotedFor:   targetID,
		VoteWeight: weight,
	})
	room.Council.Round = models.RoundOpen
	if p := room.Player(voterID); p != nil {
		p.VotedFor = targetID
	}
	room.AppendLog(models.LogEntry{
		Timestamp: now,
		Action:    models.LogVote,
		PlayerID:  voterID,
		TargetID:  targetID,
		Details:   &models.LogDetails{Points: models.IntPtr(weight)},
	})
	return nil
}

// Tally sums weighted ballots per target
func Tally(votes []models.Vote) map[string]int {
	totals := make(map[string]int, len(votes))
	for _, v := range votes {
		totals[v.VotedFor] += v.VoteWeight
	}
	return totals
}

// Resolve closes the round once every member has voted. The candidate with the
// highest weighted total loses all ships; ties go to the earliest joiner.
// It returns the eliminated player id, or "" if the round is still open.
func Resolve(room *models.Room, now time.Time) string {
	c := &room.Council
	if len(c.MemberIDs) == 0 || len(c.Votes) < len(c.MemberIDs) {
		return ""
	}

	totals := Tally(c.Votes)
	target, best := "", 0
	for id, total := range totals {
		if total > best || (total == best && before(room, id, target)) {
			target, best = id, total
		}
	}

	if target != "" {
		for i := range room.Ships {
			if room.Ships[i].PlayerID == target {
				room.Ships[i].Health = 0
			}
		}
		room.AppendLog(models.LogEntry{
			Timestamp: now,
			Action:    models.LogEliminate,
			PlayerID:  target,
			TargetID:  target,
			Details:   &models.LogDetails{Points: models.IntPtr(best)},
		})
		AddMember(room, target)
	}

	c.Votes = nil
	c.LastVoteTime = now
	c.Round = models.RoundResolved
	for i := range room.Players {
		room.Players[i].VotedFor = ""
	}
	return target
}

func before(room *models.Room, a, b string) bool {
	ra, rb := joinRank(room, a), joinRank(room, b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func joinRank(room *models.Room, playerID string) int {
	for i, p := range room.Players {
		if p.ID == playerID {
			return i
		}
	}
	return math.MaxInt
}
