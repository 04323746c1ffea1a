package rules

import (
	"errors"
	"fmt"

	"github.com/drakewald/azul-engine/game"
)

// ErrIllegalMove wraps every move validation failure.
var ErrIllegalMove = errors.New("illegal move")

const (
	// SourceCenter selects the center pool as the draft source.
	SourceCenter = -1
	// DestFloor dumps the drafted tiles straight onto the floor line.
	DestFloor = -1
)

// Move is one drafting action: take all tiles of Color from Source
// (factory index or SourceCenter) and place them on pattern line Dest
// (or DestFloor). Comparable so it can key maps.
type Move struct {
	Color  game.Tile
	Source int
	Dest   int
}

func (m Move) String() string {
	src := "center"
	if m.Source != SourceCenter {
		src = fmt.Sprintf("factory %d", m.Source)
	}
	dst := "floor"
	if m.Dest != DestFloor {
		dst = fmt.Sprintf("line %d", m.Dest)
	}
	return fmt.Sprintf("take %s from %s to %s", m.Color, src, dst)
}

// sourceCount returns how many tiles of color sit in the given source.
func sourceCount(s *game.State, source int, color game.Tile) int {
	var tiles []game.Tile
	if source == SourceCenter {
		tiles = s.Center
	} else if source >= 0 && source < len(s.Factories) {
		tiles = s.Factories[source]
	} else {
		return 0
	}
	n := 0
	for _, t := range tiles {
		if t == color {
			n++
		}
	}
	return n
}

// LegalMoves enumerates every legal move for the current player, in a
// fixed order: factories by index then center, colors in enum order,
// pattern lines top-down, floor last. The order is deterministic so visit
// distributions and tests line up across runs.
func LegalMoves(s *game.State) []Move {
	if s.Phase != game.PhaseDrafting {
		return nil
	}
	pb := &s.Players[s.Current]
	moves := make([]Move, 0, 32)

	addSource := func(source int, tiles []game.Tile) {
		var present [game.NumColors]bool
		for _, t := range tiles {
			present[t] = true
		}
		for c := game.Tile(0); c < game.NumColors; c++ {
			if !present[c] {
				continue
			}
			for row := 0; row < game.NumRows; row++ {
				if pb.CanPlace(row, c) {
					moves = append(moves, Move{Color: c, Source: source, Dest: row})
				}
			}
			moves = append(moves, Move{Color: c, Source: source, Dest: DestFloor})
		}
	}

	for i, f := range s.Factories {
		addSource(i, f)
	}
	addSource(SourceCenter, s.Center)
	return moves
}

// Validate checks mv against s without mutating anything.
func Validate(s *game.State, mv Move) error {
	if s.Phase != game.PhaseDrafting {
		return fmt.Errorf("%w: game is in %s phase", ErrIllegalMove, s.Phase)
	}
	if !mv.Color.Valid() {
		return fmt.Errorf("%w: invalid color %d", ErrIllegalMove, mv.Color)
	}
	if mv.Source != SourceCenter && (mv.Source < 0 || mv.Source >= len(s.Factories)) {
		return fmt.Errorf("%w: source %d out of range", ErrIllegalMove, mv.Source)
	}
	if sourceCount(s, mv.Source, mv.Color) == 0 {
		return fmt.Errorf("%w: no %s tiles at source %d", ErrIllegalMove, mv.Color, mv.Source)
	}
	if mv.Dest != DestFloor {
		if mv.Dest < 0 || mv.Dest >= game.NumRows {
			return fmt.Errorf("%w: destination %d out of range", ErrIllegalMove, mv.Dest)
		}
		if !s.Players[s.Current].CanPlace(mv.Dest, mv.Color) {
			return fmt.Errorf("%w: cannot place %s on line %d", ErrIllegalMove, mv.Color, mv.Dest)
		}
	}
	return nil
}
