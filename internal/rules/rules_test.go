package rules

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"spacecouncil/internal/fleet"
	"spacecouncil/internal/models"
)

var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func pos(x, y int) *models.Position {
	return &models.Position{X: x, Y: y}
}

// arena: p1 owns s1 at (5,5) and s4 at (0,0); p2 owns s2 at (6,6); p3 owns a
// wreck s3 at (10,10); an asteroid sits at (5,6).
func arena() *models.Room {
	return &models.Room{
		ID:                "r1",
		GridSize:          models.GridSize{Width: 15, Height: 15},
		Status:            models.StatusPlaying,
		ActionTimeWindows: DefaultWindows,
		Players: []models.Player{
			{ID: "p1", Alive: true}, {ID: "p2", Alive: true}, {ID: "p3"},
		},
		Ships: []models.Ship{
			{ID: "s1", PlayerID: "p1", Type: models.Fighter, Position: *pos(5, 5), Health: 3, ActionPoints: 5, Reach: 2},
			{ID: "s2", PlayerID: "p2", Type: models.Cruiser, Position: *pos(6, 6), Health: 3, ActionPoints: 2, Reach: 2},
			{ID: "s3", PlayerID: "p3", Type: models.Scout, Position: *pos(10, 10), Health: 0, ActionPoints: 0, Reach: 2},
			{ID: "s4", PlayerID: "p1", Type: models.Destroyer, Position: *pos(0, 0), Health: 3, ActionPoints: 1, Reach: 2},
		},
		Debris: []models.Debris{
			{ID: "d1", Type: models.Asteroid, Position: *pos(5, 6), Health: 50},
		},
	}
}

func ship(room *models.Room, id string) *models.Ship {
	return fleet.ShipByID(room, id)
}

func act(t models.ActionType, shipID, playerID string, target *models.Position) models.Action {
	return models.Action{Type: t, ShipID: shipID, PlayerID: playerID, Target: target}
}

func TestPreconditions(t *testing.T) {
	finished := arena()
	finished.Status = models.StatusFinished
	closed := arena()
	closed.ActionTimeWindows = []models.TimeWindow{{Start: "08:00", End: "09:00"}}
	broke := arena()
	ship(broke, "s1").ActionPoints = 0

	tests := []struct {
		name string
		room *models.Room
		a    models.Action
		want error
	}{
		{"nil room", nil, act(models.ActionImprove, "s1", "p1", nil), models.ErrRoomNotFound},
		{"finished", finished, act(models.ActionImprove, "s1", "p1", nil), models.ErrState},
		{"window closed", closed, act(models.ActionImprove, "s1", "p1", nil), models.ErrState},
		{"unknown ship", arena(), act(models.ActionImprove, "nope", "p1", nil), models.ErrTarget},
		{"not owner", arena(), act(models.ActionImprove, "s2", "p1", nil), models.ErrAuthorization},
		{"destroyed actor", arena(), act(models.ActionImprove, "s3", "p3", nil), models.ErrState},
		{"no points", broke, act(models.ActionMove, "s1", "p1", pos(6, 5)), models.ErrResource},
		{"unknown action", arena(), act("WARP", "s1", "p1", nil), models.ErrTarget},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(tc.room, tc.a, noon)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMoveReachIsChebyshev(t *testing.T) {
	tests := []struct {
		target *models.Position
		want   error
	}{
		{pos(7, 7), nil},
		{pos(3, 3), nil},
		{pos(7, 4), nil},
		{pos(8, 5), models.ErrRange},
		{pos(5, 2), models.ErrRange},
		{pos(-1, 5), models.ErrRange},
		{pos(6, 6), models.ErrOccupancy}, // s2
		{pos(5, 6), models.ErrOccupancy}, // asteroid
		{nil, models.ErrTarget},
	}
	for _, tc := range tests {
		next, err := Apply(arena(), act(models.ActionMove, "s1", "p1", tc.target), noon)
		if tc.want != nil {
			if !errors.Is(err, tc.want) {
				t.Errorf("move to %v: err = %v, want %v", tc.target, err, tc.want)
			}
			continue
		}
		if err != nil {
			t.Errorf("move to %v: %v", tc.target, err)
			continue
		}
		s := ship(next, "s1")
		if s.Position != *tc.target || s.ActionPoints != 4 {
			t.Errorf("move to %v: ship = %+v", tc.target, s)
		}
	}
}

func TestMoveBlockedByWreck(t *testing.T) {
	room := arena()
	ship(room, "s3").Position = *pos(6, 4)
	if _, err := Apply(room, act(models.ActionMove, "s1", "p1", pos(6, 4)), noon); !errors.Is(err, models.ErrOccupancy) {
		t.Fatalf("err = %v, want ErrOccupancy", err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	room := arena()
	before := room.Clone()
	if _, err := Apply(room, act(models.ActionMove, "s1", "p1", pos(7, 7)), noon); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := Apply(room, act(models.ActionAttack, "s1", "p1", pos(5, 6)), noon); err == nil {
		t.Fatal("attack on debris accepted")
	}
	if !reflect.DeepEqual(room, before) {
		t.Fatal("input room was mutated")
	}
}

func TestMoveLog(t *testing.T) {
	next, err := Apply(arena(), act(models.ActionMove, "s1", "p1", pos(4, 4)), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(next.Logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(next.Logs))
	}
	l := next.Logs[0]
	if l.Action != models.LogMove || l.PlayerID != "p1" || l.TargetID != "" {
		t.Errorf("log = %+v", l)
	}
	if *l.Details.Position != *pos(4, 4) || l.Details.Type != string(models.Fighter) {
		t.Errorf("details = %+v", l.Details)
	}
}

func TestAttackDamages(t *testing.T) {
	next, err := Apply(arena(), act(models.ActionAttack, "s1", "p1", pos(6, 6)), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := ship(next, "s2").Health; got != 2 {
		t.Errorf("target health = %d, want 2", got)
	}
	if got := ship(next, "s1").ActionPoints; got != 4 {
		t.Errorf("attacker AP = %d, want 4", got)
	}
	l := next.Logs[0]
	if l.Action != models.LogAttack || l.TargetID != "s2" {
		t.Errorf("log = %+v", l)
	}
}

func TestAttackRejections(t *testing.T) {
	tests := []struct {
		name   string
		target *models.Position
		want   error
	}{
		{"debris", pos(5, 6), models.ErrTarget},
		{"empty", pos(4, 4), models.ErrTarget},
		{"self", pos(5, 5), models.ErrTarget},
		{"out of reach", pos(8, 8), models.ErrRange},
		{"no target", nil, models.ErrTarget},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(arena(), act(models.ActionAttack, "s1", "p1", tc.target), noon)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	room := arena()
	ship(room, "s3").Position = *pos(7, 7)
	if _, err := Apply(room, act(models.ActionAttack, "s1", "p1", pos(7, 7)), noon); !errors.Is(err, models.ErrTarget) {
		t.Errorf("attack on wreck err = %v, want ErrTarget", err)
	}
}

func TestAttackDestroysTransfersAndSeatsCouncil(t *testing.T) {
	room := arena()
	ship(room, "s2").Health = 1

	next, err := Apply(room, act(models.ActionAttack, "s1", "p1", pos(6, 6)), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	victim, attacker := ship(next, "s2"), ship(next, "s1")
	if victim.Health != 0 || victim.ActionPoints != 0 {
		t.Errorf("victim = %+v", victim)
	}
	if attacker.ActionPoints != 5-1+2 {
		t.Errorf("attacker AP = %d, want 6", attacker.ActionPoints)
	}
	if len(next.Logs) != 2 {
		t.Fatalf("logs = %d, want DESTROY + TRANSFER_AP", len(next.Logs))
	}
	destroy, transfer := next.Logs[0], next.Logs[1]
	if destroy.Action != models.LogDestroy || destroy.TargetID != "s2" {
		t.Errorf("destroy log = %+v", destroy)
	}
	if transfer.Action != models.LogTransferAP || *transfer.Details.Points != 2 ||
		transfer.Details.FromShip != "s2" || transfer.Details.ToShip != "s1" || transfer.TargetID != "p2" {
		t.Errorf("transfer log = %+v %+v", transfer, transfer.Details)
	}
	if got := next.Council.MemberIDs; len(got) != 1 || got[0] != "p2" {
		t.Errorf("council = %v, want [p2]", got)
	}
	if next.Player("p2").Alive {
		t.Error("p2 still marked alive")
	}
}

func TestAttackDestroyWithoutPointsSkipsTransfer(t *testing.T) {
	room := arena()
	ship(room, "s2").Health = 1
	ship(room, "s2").ActionPoints = 0

	next, err := Apply(room, act(models.ActionAttack, "s1", "p1", pos(6, 6)), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(next.Logs) != 1 || next.Logs[0].Action != models.LogDestroy {
		t.Fatalf("logs = %+v", next.Logs)
	}
}

func TestAttackOnPlayerWithSpareShipKeepsThemOffCouncil(t *testing.T) {
	room := arena()
	room.Ships = append(room.Ships, models.Ship{ID: "s5", PlayerID: "p2", Position: *pos(14, 14), Health: 3, Reach: 2})
	ship(room, "s2").Health = 1

	next, err := Apply(room, act(models.ActionAttack, "s1", "p1", pos(6, 6)), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(next.Council.MemberIDs) != 0 {
		t.Errorf("council = %v, want empty", next.Council.MemberIDs)
	}
}

func TestAttackTwiceDestroys(t *testing.T) {
	room := arena()
	ship(room, "s2").Health = 2
	var err error
	for i := 0; i < 2; i++ {
		room, err = Apply(room, act(models.ActionAttack, "s1", "p1", pos(6, 6)), noon)
		if err != nil {
			t.Fatalf("attack %d: %v", i, err)
		}
	}
	if ship(room, "s2").Health != 0 {
		t.Fatalf("health = %d, want 0", ship(room, "s2").Health)
	}
	if _, err := Apply(room, act(models.ActionAttack, "s1", "p1", pos(6, 6)), noon); !errors.Is(err, models.ErrTarget) {
		t.Fatalf("third attack err = %v, want ErrTarget", err)
	}
}

func TestDonate(t *testing.T) {
	next, err := Apply(arena(), act(models.ActionDonate, "s1", "p1", pos(6, 6)), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := ship(next, "s2").ActionPoints; got != 3 {
		t.Errorf("target AP = %d, want 3", got)
	}
	if got := ship(next, "s1").ActionPoints; got != 4 {
		t.Errorf("donor AP = %d, want 4", got)
	}
	if l := next.Logs[0]; l.Action != models.LogDonate || *l.Details.Points != 1 || l.TargetID != "s2" {
		t.Errorf("log = %+v", l)
	}
}

func TestDonateRejections(t *testing.T) {
	wreck := arena()
	ship(wreck, "s3").Position = *pos(6, 5)
	far := arena()
	ship(far, "s2").Position = *pos(12, 12)
	near := arena()
	ship(near, "s4").Position = *pos(4, 4)

	tests := []struct {
		name string
		room *models.Room
		a    models.Action
		want error
	}{
		{"own ship nearby", near, act(models.ActionDonate, "s1", "p1", pos(4, 4)), models.ErrAuthorization},
		{"own ship far away", arena(), act(models.ActionDonate, "s1", "p1", pos(0, 0)), models.ErrAuthorization},
		{"empty cell", arena(), act(models.ActionDonate, "s1", "p1", pos(4, 4)), models.ErrTarget},
		{"wreck", wreck, act(models.ActionDonate, "s1", "p1", pos(6, 5)), models.ErrTarget},
		{"out of reach", far, act(models.ActionDonate, "s1", "p1", pos(12, 12)), models.ErrRange},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(tc.room, tc.a, noon)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDonateIgnoresRequestedAmount(t *testing.T) {
	a := act(models.ActionDonate, "s1", "p1", pos(6, 6))
	a.Points = models.IntPtr(4)
	next, err := Apply(arena(), a, noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := ship(next, "s2").ActionPoints; got != 3 {
		t.Errorf("target AP = %d, want 3", got)
	}
	if got := *next.Logs[0].Details.Points; got != 1 {
		t.Errorf("logged points = %d, want 1", got)
	}
}

func TestRecover(t *testing.T) {
	tests := []struct {
		name      string
		health    int
		points    int
		want      error
		newHealth int
	}{
		{"heals one", 1, 3, nil, 2},
		{"caps at max", 2, 4, nil, 3},
		{"full health", 3, 5, models.ErrState, 3},
		{"too few points", 1, 2, models.ErrResource, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			room := arena()
			s := ship(room, "s1")
			s.Health, s.ActionPoints = tc.health, tc.points
			next, err := Apply(room, act(models.ActionRecover, "s1", "p1", nil), noon)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("err = %v, want %v", err, tc.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			got := ship(next, "s1")
			if got.Health != tc.newHealth || got.ActionPoints != tc.points-3 {
				t.Errorf("ship = health %d ap %d", got.Health, got.ActionPoints)
			}
		})
	}
}

func TestImprove(t *testing.T) {
	next, err := Apply(arena(), act(models.ActionImprove, "s1", "p1", nil), noon)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s := ship(next, "s1"); s.Reach != 3 || s.ActionPoints != 2 {
		t.Errorf("ship = reach %d ap %d, want 3 2", s.Reach, s.ActionPoints)
	}
	// reach now covers (8,5)
	if _, err := Apply(next, act(models.ActionMove, "s1", "p1", pos(8, 5)), noon); err != nil {
		t.Errorf("move after improve: %v", err)
	}

	room := arena()
	ship(room, "s1").ActionPoints = 2
	if _, err := Apply(room, act(models.ActionImprove, "s1", "p1", nil), noon); !errors.Is(err, models.ErrResource) {
		t.Errorf("err = %v, want ErrResource", err)
	}
}

func TestInvariantsHoldAcrossSequence(t *testing.T) {
	room := arena()
	seq := []models.Action{
		act(models.ActionAttack, "s1", "p1", pos(6, 6)),
		act(models.ActionAttack, "s2", "p2", pos(5, 5)),
		act(models.ActionAttack, "s1", "p1", pos(6, 6)),
		act(models.ActionRecover, "s1", "p1", nil),
		act(models.ActionAttack, "s1", "p1", pos(6, 6)),
		act(models.ActionMove, "s4", "p1", pos(2, 2)),
		act(models.ActionMove, "s4", "p1", pos(3, 3)),
	}
	for _, a := range seq {
		if next, err := Apply(room, a, noon); err == nil {
			room = next
		}
		for _, s := range room.Ships {
			if s.Health < 0 || s.Health > models.MaxHealth || s.ActionPoints < 0 {
				t.Fatalf("after %s: ship %s out of bounds: %+v", a.Type, s.ID, s)
			}
		}
	}
}

func TestVoteAction(t *testing.T) {
	room := arena()
	room.Council.MemberIDs = []string{"p3"}

	next, err := Apply(room, models.Action{Type: models.ActionVote, PlayerID: "p3", Target: pos(6, 6)}, noon)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	v := next.Council.Votes
	if len(v) != 1 || v[0].VotedFor != "p2" || v[0].VoteWeight != 3 {
		t.Fatalf("votes = %+v", v)
	}
	if len(next.Logs) != 1 || next.Logs[0].Action != models.LogVote {
		t.Errorf("logs = %+v", next.Logs)
	}

	if _, err := Apply(room, models.Action{Type: models.ActionVote, PlayerID: "p3", Target: pos(10, 10)}, noon); !errors.Is(err, models.ErrTarget) {
		t.Errorf("vote on wreck err = %v, want ErrTarget", err)
	}
	if _, err := Apply(room, models.Action{Type: models.ActionVote, PlayerID: "p1", Target: pos(6, 6)}, noon); !errors.Is(err, models.ErrAuthorization) {
		t.Errorf("vote by non-member err = %v, want ErrAuthorization", err)
	}
}

func TestVoteIgnoresActionWindow(t *testing.T) {
	room := arena()
	room.ActionTimeWindows = []models.TimeWindow{{Start: "01:00", End: "02:00"}}
	room.Council.MemberIDs = []string{"p3"}
	if _, err := Vote(room, "p3", "p1", noon); err != nil {
		t.Fatalf("Vote: %v", err)
	}
}

func TestInWindow(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 30, 0, time.UTC) }
	day := []models.TimeWindow{{Start: "09:00", End: "17:30"}}
	night := []models.TimeWindow{{Start: "22:00", End: "02:00"}}
	tests := []struct {
		windows []models.TimeWindow
		now     time.Time
		want    bool
	}{
		{day, at(9, 0), true},
		{day, at(17, 30), true},
		{day, at(17, 31), false},
		{day, at(8, 59), false},
		{night, at(23, 15), true},
		{night, at(1, 59), true},
		{night, at(12, 0), false},
		{nil, at(12, 0), false},
		{DefaultWindows, at(23, 59), true},
		{[]models.TimeWindow{{Start: "bad", End: "10:00"}}, at(9, 0), false},
	}
	for _, tc := range tests {
		if got := InWindow(tc.windows, tc.now); got != tc.want {
			t.Errorf("InWindow(%v, %s) = %v, want %v", tc.windows, tc.now.Format("15:04"), got, tc.want)
		}
	}
}

func TestValidateWindows(t *testing.T) {
	if err := ValidateWindows(DefaultWindows); err != nil {
		t.Errorf("default windows: %v", err)
	}
	if err := ValidateWindows([]models.TimeWindow{{Start: "25:00", End: "26:00"}}); !errors.Is(err, models.ErrState) {
		t.Errorf("err = %v, want ErrState", err)
	}
}
