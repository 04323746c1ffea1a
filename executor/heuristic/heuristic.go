// Package heuristic provides a hand-tuned drafting policy. It doubles as
// a standalone opponent and as the rollout policy behind the
// network-free search evaluator.
package heuristic

import (
	"math"

	"lukechampine.com/frand"

	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// Move scoring weights. Tuned by self-play against random; not
// principled, just hard to beat for something this cheap.
const (
	placedWeight     = 10.0
	overflowWeight   = -20.0
	completionBonus  = 15.0
	adjacencyWeight  = 5.0
	columnWeight     = 3.0
	markerPenalty    = -2.0
	floorDumpPenalty = -25.0
)

// ScoreMove rates mv for the current player of s. Higher is better.
func ScoreMove(s *game.State, mv rules.Move) float64 {
	pb := &s.Players[s.Current]

	taken := 0
	src := s.Center
	if mv.Source != rules.SourceCenter {
		src = s.Factories[mv.Source]
	}
	for _, t := range src {
		if t == mv.Color {
			taken++
		}
	}

	score := 0.0
	if mv.Source == rules.SourceCenter && s.CenterMarker {
		score += markerPenalty
	}

	if mv.Dest == rules.DestFloor {
		return score + floorDumpPenalty + float64(taken)*overflowWeight/4
	}

	capacity := mv.Dest + 1
	space := capacity - pb.Lines[mv.Dest].Count
	placed := taken
	if placed > space {
		placed = space
	}
	overflow := taken - placed

	score += float64(placed) * placedWeight
	score += float64(overflow) * overflowWeight

	if pb.Lines[mv.Dest].Count+placed == capacity {
		score += completionBonus
		col := game.WallColumn(mv.Dest, mv.Color)
		wall := pb.Wall
		wall[mv.Dest][col] = true
		score += float64(rules.PlacementScore(&wall, mv.Dest, col)) * adjacencyWeight

		colTiles := 0
		for r := 0; r < game.NumRows; r++ {
			if wall[r][col] {
				colTiles++
			}
		}
		score += float64(colTiles) * columnWeight
	}

	return score
}

// ChooseMove returns the highest-scoring legal move, ties broken by
// enumeration order. Panics if moves is empty.
func ChooseMove(s *game.State, moves []rules.Move) rules.Move {
	best := moves[0]
	bestScore := math.Inf(-1)
	for _, mv := range moves {
		if sc := ScoreMove(s, mv); sc > bestScore {
			bestScore = sc
			best = mv
		}
	}
	return best
}

// ChooseMoveEpsilon picks uniformly at random with probability eps,
// otherwise greedily. Used by rollouts to keep playouts from being
// deterministic.
func ChooseMoveEpsilon(s *game.State, moves []rules.Move, eps float64) rules.Move {
	if eps > 0 && frand.Float64() < eps {
		return moves[frand.Intn(len(moves))]
	}
	return ChooseMove(s, moves)
}
