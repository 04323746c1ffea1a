package rules

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"lukechampine.com/frand"

	"github.com/drakewald/azul-engine/game"
)

// blankState returns a drafting state with empty sources and a full bag,
// ready for tests to stage exact factory contents.
func blankState(t *testing.T, players int) *game.State {
	t.Helper()
	st, err := game.NewGame(players)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	for i := range st.Factories {
		st.Factories[i] = nil
	}
	st.Center = nil
	st.Bag = game.NewBag()
	return st
}

func dumpState(st *game.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round=%d Phase=%s Current=%d Marker=%v\n", st.Round, st.Phase, st.Current, st.CenterMarker)
	for i, f := range st.Factories {
		fmt.Fprintf(&b, "Factory %d: %v\n", i, f)
	}
	fmt.Fprintf(&b, "Center: %v\n", st.Center)
	for i := range st.Players {
		fmt.Fprintf(&b, "Player %d:\n%s", i, st.Players[i].String())
	}
	return b.String()
}

func TestApplyFactoryDraft(t *testing.T) {
	st := blankState(t, 2)
	st.Factories[0] = []game.Tile{game.Blue, game.Blue, game.Blue, game.Red}
	st.Factories[1] = []game.Tile{game.Yellow}

	mv := Move{Color: game.Blue, Source: 0, Dest: 2}
	if err := Apply(st, mv); err != nil {
		t.Fatalf("apply: %v\n%s", err, dumpState(st))
	}

	pb := &st.Players[0]
	if pb.Lines[2].Color != game.Blue || pb.Lines[2].Count != 3 {
		t.Fatalf("line 2 = %+v, want 3 blue\n%s", pb.Lines[2], dumpState(st))
	}
	if len(st.Factories[0]) != 0 {
		t.Fatalf("factory 0 not emptied\n%s", dumpState(st))
	}
	if len(st.Center) != 1 || st.Center[0] != game.Red {
		t.Fatalf("center = %v, want [red]\n%s", st.Center, dumpState(st))
	}
	if st.Current != 1 {
		t.Fatalf("current = %d, want 1", st.Current)
	}
	if st.Phase != game.PhaseDrafting {
		t.Fatalf("phase = %s, want drafting (factory 1 still has tiles)", st.Phase)
	}
}

func TestApplyCenterTakesMarker(t *testing.T) {
	st := blankState(t, 2)
	st.Factories[0] = []game.Tile{game.Yellow}
	st.Center = []game.Tile{game.Blue, game.Red}
	st.CenterMarker = true

	mv := Move{Color: game.Blue, Source: SourceCenter, Dest: DestFloor}
	if err := Apply(st, mv); err != nil {
		t.Fatalf("apply: %v", err)
	}

	pb := &st.Players[0]
	if !pb.HasStartMarker {
		t.Fatalf("player 0 should hold the start marker\n%s", dumpState(st))
	}
	if st.CenterMarker {
		t.Fatalf("marker should have left the center")
	}
	if pb.FloorCount() != 2 {
		t.Fatalf("floor count = %d, want 2 (marker + 1 tile)", pb.FloorCount())
	}
	if len(st.Center) != 1 || st.Center[0] != game.Red {
		t.Fatalf("center = %v, want [red]", st.Center)
	}

	// Second center take gets no marker.
	mv = Move{Color: game.Red, Source: SourceCenter, Dest: DestFloor}
	if err := Apply(st, mv); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if st.Players[1].HasStartMarker {
		t.Fatalf("player 1 should not get the marker")
	}
}

func TestApplyOverflowToFloorThenLid(t *testing.T) {
	st := blankState(t, 2)
	st.Factories[0] = []game.Tile{game.Blue, game.Blue, game.Blue, game.Blue}
	st.Factories[1] = []game.Tile{game.Yellow}
	pb := &st.Players[0]
	pb.Floor = []game.Tile{game.Red, game.Red, game.Red, game.Red, game.Red, game.Red}

	// Line 0 holds one tile; 3 overflow, 1 fits on the floor, 2 go to
	// the lid.
	mv := Move{Color: game.Blue, Source: 0, Dest: 0}
	if err := Apply(st, mv); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if pb.Lines[0].Count != 1 {
		t.Fatalf("line 0 count = %d, want 1", pb.Lines[0].Count)
	}
	if len(pb.Floor) != game.FloorSlots {
		t.Fatalf("floor = %v, want %d tiles", pb.Floor, game.FloorSlots)
	}
	if st.Bag.Lid[game.Blue] != 2 {
		t.Fatalf("lid blue = %d, want 2\n%s", st.Bag.Lid[game.Blue], dumpState(st))
	}
}

func TestApplyRejectsIllegalMoves(t *testing.T) {
	st := blankState(t, 2)
	st.Factories[0] = []game.Tile{game.Blue, game.Red}
	st.Players[0].Lines[1] = game.PatternLine{Color: game.Yellow, Count: 1}
	st.Players[0].Wall[3][game.WallColumn(3, game.Red)] = true

	cases := []struct {
		name string
		mv   Move
	}{
		{"color not at source", Move{Color: game.White, Source: 0, Dest: 0}},
		{"empty center", Move{Color: game.Blue, Source: SourceCenter, Dest: 0}},
		{"bad factory index", Move{Color: game.Blue, Source: 9, Dest: 0}},
		{"line staging other color", Move{Color: game.Blue, Source: 0, Dest: 1}},
		{"wall cell filled", Move{Color: game.Red, Source: 0, Dest: 3}},
		{"bad dest", Move{Color: game.Blue, Source: 0, Dest: 7}},
		{"bad color", Move{Color: game.Tile(9), Source: 0, Dest: 0}},
	}
	for _, tc := range cases {
		err := Apply(st, tc.mv)
		if !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%s: err = %v, want ErrIllegalMove", tc.name, err)
		}
	}

	// Failed applies must not have touched the state.
	if len(st.Factories[0]) != 2 || st.Current != 0 || len(st.Center) != 0 {
		t.Fatalf("state mutated by rejected move\n%s", dumpState(st))
	}
}

func TestLegalMovesSound(t *testing.T) {
	st := blankState(t, 2)
	st.Factories[0] = []game.Tile{game.Blue, game.Blue, game.Red, game.Yellow}
	st.Factories[2] = []game.Tile{game.Black}
	st.Center = []game.Tile{game.White, game.Red}
	st.Players[0].Lines[0] = game.PatternLine{Color: game.Blue, Count: 1}
	st.Players[0].Wall[2][game.WallColumn(2, game.Red)] = true

	legal := make(map[Move]bool)
	for _, mv := range LegalMoves(st) {
		if err := Validate(st, mv); err != nil {
			t.Fatalf("enumerated illegal move %v: %v", mv, err)
		}
		if legal[mv] {
			t.Fatalf("duplicate move %v", mv)
		}
		legal[mv] = true
	}

	// Everything not enumerated must fail validation.
	for source := SourceCenter; source < len(st.Factories); source++ {
		for c := game.Tile(0); c < game.NumColors; c++ {
			for dest := DestFloor; dest < game.NumRows; dest++ {
				mv := Move{Color: c, Source: source, Dest: dest}
				if legal[mv] {
					continue
				}
				if err := Validate(st, mv); err == nil {
					t.Fatalf("move %v validates but was not enumerated", mv)
				}
			}
		}
	}
}

func TestLastDraftFlipsToTiling(t *testing.T) {
	st := blankState(t, 2)
	st.Factories[0] = []game.Tile{game.Blue}
	st.CenterMarker = false

	if err := Apply(st, Move{Color: game.Blue, Source: 0, Dest: 0}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if st.Phase != game.PhaseTiling {
		t.Fatalf("phase = %s, want tiling\n%s", st.Phase, dumpState(st))
	}
	if got := LegalMoves(st); got != nil {
		t.Fatalf("legal moves in tiling phase = %v, want none", got)
	}
}

func TestFinishRoundScoresAndPenalizes(t *testing.T) {
	st := blankState(t, 2)
	st.Phase = game.PhaseTiling

	pb := &st.Players[0]
	pb.Lines[0] = game.PatternLine{Color: game.White, Count: 1}
	pb.Lines[2] = game.PatternLine{Color: game.Blue, Count: 3}
	pb.Lines[3] = game.PatternLine{Color: game.Red, Count: 2} // incomplete
	pb.Floor = []game.Tile{game.Yellow}
	pb.HasStartMarker = true
	st.Current = 1

	if err := FinishRound(st); err != nil {
		t.Fatalf("finish round: %v", err)
	}

	// Two isolated placements score 1 each; floor penalty is marker +
	// one tile = 2. Score: 2 - 2 = 0.
	if pb.Score != 0 {
		t.Fatalf("score = %d, want 0\n%s", pb.Score, dumpState(st))
	}
	if !pb.Wall[0][game.WallColumn(0, game.White)] || !pb.Wall[2][game.WallColumn(2, game.Blue)] {
		t.Fatalf("completed lines did not reach the wall\n%s", dumpState(st))
	}
	if pb.Lines[0].Count != 0 || pb.Lines[2].Count != 0 {
		t.Fatalf("completed lines not cleared")
	}
	if pb.Lines[3].Count != 2 {
		t.Fatalf("incomplete line should carry over, got %+v", pb.Lines[3])
	}
	if len(pb.Floor) != 0 || pb.HasStartMarker {
		t.Fatalf("floor not cleared")
	}
	// Line 2 put two extra tiles in the lid, floor one more.
	if st.Bag.Lid[game.Blue] != 2 || st.Bag.Lid[game.Yellow] != 1 {
		t.Fatalf("lid = %v", st.Bag.Lid)
	}

	// Marker holder starts the next round.
	if st.Current != 0 {
		t.Fatalf("current = %d, want marker holder 0", st.Current)
	}
	if st.Round != 2 || st.Phase != game.PhaseDrafting || !st.CenterMarker {
		t.Fatalf("round not reset\n%s", dumpState(st))
	}
	for i, f := range st.Factories {
		if len(f) == 0 {
			t.Fatalf("factory %d not refilled", i)
		}
	}
}

func TestScoreNeverNegative(t *testing.T) {
	st := blankState(t, 2)
	st.Phase = game.PhaseTiling
	pb := &st.Players[1]
	pb.Floor = []game.Tile{game.Red, game.Red, game.Red, game.Red, game.Red, game.Red, game.Red}

	if err := FinishRound(st); err != nil {
		t.Fatalf("finish round: %v", err)
	}
	if pb.Score != 0 {
		t.Fatalf("score = %d, want clamp at 0", pb.Score)
	}
}

func TestFinishRoundEndsGame(t *testing.T) {
	st := blankState(t, 2)
	st.Phase = game.PhaseTiling

	pb := &st.Players[0]
	// Four of row 1 tiled; completing the line finishes the row.
	for c := game.Tile(0); c < game.NumColors; c++ {
		if c != game.Red {
			pb.Wall[1][game.WallColumn(1, c)] = true
		}
	}
	pb.Lines[1] = game.PatternLine{Color: game.Red, Count: 2}
	pb.Score = 10

	if err := FinishRound(st); err != nil {
		t.Fatalf("finish round: %v", err)
	}
	if st.Phase != game.PhaseGameOver {
		t.Fatalf("phase = %s, want gameover\n%s", st.Phase, dumpState(st))
	}
	// Placement: full horizontal run = 5. Bonus: complete row = 2.
	if pb.Score != 10+5+2 {
		t.Fatalf("score = %d, want 17\n%s", pb.Score, dumpState(st))
	}
}

func TestFullRandomGameConservation(t *testing.T) {
	for trial := 0; trial < 5; trial++ {
		st, err := game.NewGame(2 + trial%3)
		if err != nil {
			t.Fatal(err)
		}
		moves := 0
		for st.Phase != game.PhaseGameOver {
			if st.Phase == game.PhaseTiling {
				if err := FinishRound(st); err != nil {
					t.Fatalf("finish round: %v\n%s", err, dumpState(st))
				}
				if err := st.CheckConservation(); err != nil {
					t.Fatalf("after round %d: %v\n%s", st.Round, err, dumpState(st))
				}
				continue
			}
			legal := LegalMoves(st)
			if len(legal) == 0 {
				t.Fatalf("no legal moves in drafting phase\n%s", dumpState(st))
			}
			if err := Apply(st, legal[frand.Intn(len(legal))]); err != nil {
				t.Fatalf("apply: %v\n%s", err, dumpState(st))
			}
			moves++
			if moves > 10000 {
				t.Fatalf("game did not terminate")
			}
		}
		if err := st.CheckConservation(); err != nil {
			t.Fatalf("terminal: %v\n%s", err, dumpState(st))
		}
		res := FinalResult(st)
		if len(res.Scores) != len(st.Players) {
			t.Fatalf("result scores = %v", res.Scores)
		}
	}
}
