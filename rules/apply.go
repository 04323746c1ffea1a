package rules

import (
	"github.com/drakewald/azul-engine/game"
)

// Apply executes mv for the current player, mutating s. The move is fully
// validated before any mutation, so a returned error leaves s untouched.
// After a legal move the turn passes to the next player; when the last
// source empties the state flips to the tiling phase.
func Apply(s *game.State, mv Move) error {
	if err := Validate(s, mv); err != nil {
		return err
	}

	pb := &s.Players[s.Current]

	// Take every tile of the chosen color out of the source. Factory
	// leftovers slide to the center; the center just shrinks.
	taken := 0
	if mv.Source == SourceCenter {
		kept := s.Center[:0]
		for _, t := range s.Center {
			if t == mv.Color {
				taken++
			} else {
				kept = append(kept, t)
			}
		}
		s.Center = kept
		if s.CenterMarker {
			// First draft from the center this round: the marker goes to
			// this player's floor line and claims a penalty slot.
			s.CenterMarker = false
			pb.HasStartMarker = true
		}
	} else {
		for _, t := range s.Factories[mv.Source] {
			if t == mv.Color {
				taken++
			} else {
				s.Center = append(s.Center, t)
			}
		}
		s.Factories[mv.Source] = s.Factories[mv.Source][:0]
	}

	// Place on the pattern line up to capacity; the rest falls to the
	// floor, and past the last floor slot straight into the lid.
	if mv.Dest != DestFloor {
		line := &pb.Lines[mv.Dest]
		line.Color = mv.Color
		capacity := mv.Dest + 1
		for taken > 0 && line.Count < capacity {
			line.Count++
			taken--
		}
	}
	for ; taken > 0; taken-- {
		if pb.FloorCount() < game.FloorSlots {
			pb.Floor = append(pb.Floor, mv.Color)
		} else {
			s.Bag.Discard(mv.Color, 1)
		}
	}

	s.Current = (s.Current + 1) % len(s.Players)
	if s.DraftingDone() {
		s.Phase = game.PhaseTiling
	}
	return nil
}
