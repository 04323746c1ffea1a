package rules

import (
	"github.com/drakewald/azul-engine/game"
)

var floorPenalties = [game.FloorSlots]int{1, 1, 2, 2, 2, 3, 3}

// FloorPenalty returns the total penalty for n occupied floor slots. The
// marker counts as an occupant; occupancy past the printed slots adds
// nothing (those tiles went to the lid).
func FloorPenalty(n int) int {
	if n > game.FloorSlots {
		n = game.FloorSlots
	}
	total := 0
	for i := 0; i < n; i++ {
		total += floorPenalties[i]
	}
	return total
}

// PlacementScore scores a tile just placed on the wall at (row, col): the
// length of its horizontal run plus its vertical run, or 1 when the tile
// touches nothing in either direction.
func PlacementScore(wall *[game.NumRows][game.NumCols]bool, row, col int) int {
	h := 1
	for c := col - 1; c >= 0 && wall[row][c]; c-- {
		h++
	}
	for c := col + 1; c < game.NumCols && wall[row][c]; c++ {
		h++
	}
	v := 1
	for r := row - 1; r >= 0 && wall[r][col]; r-- {
		v++
	}
	for r := row + 1; r < game.NumRows && wall[r][col]; r++ {
		v++
	}
	if h == 1 && v == 1 {
		return 1
	}
	if h == 1 {
		return v
	}
	if v == 1 {
		return h
	}
	return h + v
}

// End-of-game bonus values.
const (
	BonusPerRow   = 2
	BonusPerCol   = 7
	BonusPerColor = 10
)

// EndGameBonus returns the final bonus for a board: +2 per complete row,
// +7 per complete column, +10 per complete color.
func EndGameBonus(pb *game.PlayerBoard) int {
	return BonusPerRow*pb.CompleteRows() +
		BonusPerCol*pb.CompleteCols() +
		BonusPerColor*pb.CompleteColors()
}

// Result summarizes a finished game.
type Result struct {
	Scores []int
	// Winner is the index of the winning player; meaningless when Draw.
	Winner int
	Draw   bool
}

// FinalResult ranks players by score, breaking ties by complete wall
// rows. If the tie survives the tie-break the game is a draw.
func FinalResult(s *game.State) Result {
	res := Result{Scores: make([]int, len(s.Players))}
	for i := range s.Players {
		res.Scores[i] = s.Players[i].Score
	}
	best := 0
	for i := 1; i < len(s.Players); i++ {
		if better(&s.Players[i], &s.Players[best]) {
			best = i
		}
	}
	res.Winner = best
	for i := range s.Players {
		if i == best {
			continue
		}
		if s.Players[i].Score == s.Players[best].Score &&
			s.Players[i].CompleteRows() == s.Players[best].CompleteRows() {
			res.Draw = true
			break
		}
	}
	return res
}

func better(a, b *game.PlayerBoard) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.CompleteRows() > b.CompleteRows()
}

// ValueScale maps score margins into [-1, 1] for training targets: a
// 25-point lead saturates the value head.
const ValueScale = 25.0

// MarginValues converts a score vector into per-player values: each
// player's margin over the best opposing score, scaled and clamped.
// Exact ties come out as zero.
func MarginValues(scores []int) []float64 {
	values := make([]float64, len(scores))
	for i, sc := range scores {
		bestOther := 0
		first := true
		for j, other := range scores {
			if j == i {
				continue
			}
			if first || other > bestOther {
				bestOther = other
				first = false
			}
		}
		v := float64(sc-bestOther) / ValueScale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		values[i] = v
	}
	return values
}

// OutcomeValues returns the training value vector for a terminal state.
func OutcomeValues(s *game.State) []float64 {
	scores := make([]int, len(s.Players))
	for i := range s.Players {
		scores[i] = s.Players[i].Score
	}
	return MarginValues(scores)
}
