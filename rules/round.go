package rules

import (
	"fmt"

	"github.com/drakewald/azul-engine/game"
)

// FinishRound resolves the tiling phase: completed pattern lines move one
// tile to the wall (rest to the lid), placements are scored, floor
// penalties land, and floors are cleared. If any wall row is complete the
// game ends with final bonuses; otherwise the marker holder leads the
// next round and factories refill.
func FinishRound(s *game.State) error {
	if s.Phase != game.PhaseTiling {
		return fmt.Errorf("finish round in %s phase", s.Phase)
	}

	nextStarter := -1
	for i := range s.Players {
		pb := &s.Players[i]

		for r := 0; r < game.NumRows; r++ {
			line := &pb.Lines[r]
			if line.Count != r+1 {
				continue
			}
			col := game.WallColumn(r, line.Color)
			pb.Wall[r][col] = true
			pb.Score += PlacementScore(&pb.Wall, r, col)
			// One tile goes on the wall, the rest back in the box.
			s.Bag.Discard(line.Color, line.Count-1)
			line.Count = 0
		}

		pb.Score -= FloorPenalty(pb.FloorCount())
		if pb.Score < 0 {
			pb.Score = 0
		}
		for _, t := range pb.Floor {
			s.Bag.Discard(t, 1)
		}
		pb.Floor = pb.Floor[:0]
		if pb.HasStartMarker {
			nextStarter = i
			pb.HasStartMarker = false
		}

		if pb.CompleteRows() > 0 {
			s.EndTriggered = true
		}
	}

	if s.EndTriggered {
		for i := range s.Players {
			s.Players[i].Score += EndGameBonus(&s.Players[i])
		}
		s.Phase = game.PhaseGameOver
		return nil
	}

	if nextStarter >= 0 {
		s.Current = nextStarter
	}
	s.CenterMarker = true
	s.Round++
	s.RefillFactories()
	s.Phase = game.PhaseDrafting
	return nil
}

// PotentialScores estimates each player's final score if the game ended
// now: current score plus placement value of lines that would complete,
// minus pending floor penalties, plus projected end bonuses. Used as the
// rollout cutoff evaluation.
func PotentialScores(s *game.State) []int {
	scores := make([]int, len(s.Players))
	for i := range s.Players {
		pb := s.Players[i]
		wall := pb.Wall
		score := pb.Score
		for r := 0; r < game.NumRows; r++ {
			line := pb.Lines[r]
			if line.Count != r+1 {
				continue
			}
			col := game.WallColumn(r, line.Color)
			wall[r][col] = true
			score += PlacementScore(&wall, r, col)
		}
		score -= FloorPenalty(pb.FloorCount())
		if score < 0 {
			score = 0
		}
		proj := game.PlayerBoard{Wall: wall}
		score += EndGameBonus(&proj)
		scores[i] = score
	}
	return scores
}
