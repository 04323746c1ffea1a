package rules

import (
	"testing"

	"github.com/drakewald/azul-engine/game"
)

func TestPlacementScore(t *testing.T) {
	var wall [game.NumRows][game.NumCols]bool

	// Isolated tile.
	wall[2][2] = true
	if got := PlacementScore(&wall, 2, 2); got != 1 {
		t.Fatalf("isolated = %d, want 1", got)
	}

	// Horizontal run only.
	wall[2][1] = true
	wall[2][0] = true
	if got := PlacementScore(&wall, 2, 2); got != 3 {
		t.Fatalf("horizontal run = %d, want 3", got)
	}

	// Both directions: 3 across, 2 down scores 5.
	wall[1][2] = true
	if got := PlacementScore(&wall, 2, 2); got != 5 {
		t.Fatalf("cross = %d, want 5", got)
	}

	// Vertical only.
	var wall2 [game.NumRows][game.NumCols]bool
	wall2[0][4] = true
	wall2[1][4] = true
	wall2[2][4] = true
	wall2[3][4] = true
	if got := PlacementScore(&wall2, 3, 4); got != 4 {
		t.Fatalf("vertical run = %d, want 4", got)
	}
}

func TestFloorPenalty(t *testing.T) {
	want := []int{0, 1, 2, 4, 6, 8, 11, 14}
	for n, w := range want {
		if got := FloorPenalty(n); got != w {
			t.Fatalf("FloorPenalty(%d) = %d, want %d", n, got, w)
		}
	}
	// Overflow past the printed slots adds nothing.
	if got := FloorPenalty(12); got != 14 {
		t.Fatalf("FloorPenalty(12) = %d, want 14", got)
	}
}

func TestEndGameBonus(t *testing.T) {
	var pb game.PlayerBoard
	if got := EndGameBonus(&pb); got != 0 {
		t.Fatalf("empty board bonus = %d", got)
	}

	for c := 0; c < game.NumCols; c++ {
		pb.Wall[0][c] = true
	}
	if got := EndGameBonus(&pb); got != BonusPerRow {
		t.Fatalf("one row = %d, want %d", got, BonusPerRow)
	}

	for r := 0; r < game.NumRows; r++ {
		pb.Wall[r][0] = true
	}
	if got := EndGameBonus(&pb); got != BonusPerRow+BonusPerCol {
		t.Fatalf("row+col = %d, want %d", got, BonusPerRow+BonusPerCol)
	}

	for r := 0; r < game.NumRows; r++ {
		pb.Wall[r][game.WallColumn(r, game.Blue)] = true
	}
	if got := EndGameBonus(&pb); got != BonusPerRow+BonusPerCol+BonusPerColor {
		t.Fatalf("row+col+color = %d, want %d", got, BonusPerRow+BonusPerCol+BonusPerColor)
	}
}

func TestFinalResultTieBreak(t *testing.T) {
	st := blankState(t, 2)
	st.Players[0].Score = 40
	st.Players[1].Score = 40
	for c := 0; c < game.NumCols; c++ {
		st.Players[1].Wall[2][c] = true
	}

	res := FinalResult(st)
	if res.Draw {
		t.Fatalf("complete rows should break the tie")
	}
	if res.Winner != 1 {
		t.Fatalf("winner = %d, want 1", res.Winner)
	}
}

func TestFinalResultDraw(t *testing.T) {
	st := blankState(t, 2)
	st.Players[0].Score = 33
	st.Players[1].Score = 33

	res := FinalResult(st)
	if !res.Draw {
		t.Fatalf("identical score and rows should draw")
	}
}

func TestMarginValues(t *testing.T) {
	vals := MarginValues([]int{60, 35})
	if vals[0] != 1 || vals[1] != -1 {
		t.Fatalf("saturated margins = %v, want [1 -1]", vals)
	}

	vals = MarginValues([]int{45, 40})
	if vals[0] != 0.2 || vals[1] != -0.2 {
		t.Fatalf("5-point margin = %v, want [0.2 -0.2]", vals)
	}

	vals = MarginValues([]int{30, 30})
	if vals[0] != 0 || vals[1] != 0 {
		t.Fatalf("tie = %v, want zeros", vals)
	}

	// Multiplayer: margin is against the best opponent.
	vals = MarginValues([]int{50, 45, 20})
	if vals[0] != 0.2 {
		t.Fatalf("leader value = %v, want 0.2", vals[0])
	}
	if vals[2] != -1 {
		t.Fatalf("trailing value = %v, want -1", vals[2])
	}
}
