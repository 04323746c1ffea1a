package game

import (
	"fmt"
)

// Phase tracks where in the round loop a state sits.
type Phase int8

const (
	// PhaseDrafting: players are taking tiles from factories and center.
	PhaseDrafting Phase = iota
	// PhaseTiling: all sources are empty; pattern lines are waiting to be
	// resolved onto walls.
	PhaseTiling
	// PhaseGameOver: final scoring has been applied.
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseDrafting:
		return "drafting"
	case PhaseTiling:
		return "tiling"
	case PhaseGameOver:
		return "gameover"
	}
	return "unknown"
}

const (
	MinPlayers = 2
	MaxPlayers = 4
)

// NumFactories returns the factory display count for a player count.
func NumFactories(players int) int {
	return 2*players + 1
}

// State is a complete game position. It is a plain value graph: Clone
// produces a fully independent copy, which the search relies on.
type State struct {
	Players   []PlayerBoard
	Factories [][]Tile
	Center    []Tile
	// CenterMarker is true while the first-player marker still sits in
	// the center.
	CenterMarker bool
	Bag          *Bag
	Current      int
	Round        int
	// EndTriggered is set when a completed wall row has been seen; the
	// game ends after that round's tiling.
	EndTriggered bool
	Phase        Phase
}

// NewGame sets up a fresh game for the given player count: full bag,
// filled factories, marker in the center, player 0 to move.
func NewGame(players int) (*State, error) {
	if players < MinPlayers || players > MaxPlayers {
		return nil, fmt.Errorf("player count %d out of range [%d,%d]", players, MinPlayers, MaxPlayers)
	}
	s := &State{
		Players:      make([]PlayerBoard, players),
		Factories:    make([][]Tile, NumFactories(players)),
		Center:       nil,
		CenterMarker: true,
		Bag:          NewBag(),
		Round:        1,
		Phase:        PhaseDrafting,
	}
	s.RefillFactories()
	return s, nil
}

// Clone returns a deep copy sharing no memory with s.
func (s *State) Clone() *State {
	ns := &State{
		Players:      make([]PlayerBoard, len(s.Players)),
		Factories:    make([][]Tile, len(s.Factories)),
		Center:       append([]Tile(nil), s.Center...),
		CenterMarker: s.CenterMarker,
		Bag:          s.Bag.Clone(),
		Current:      s.Current,
		Round:        s.Round,
		EndTriggered: s.EndTriggered,
		Phase:        s.Phase,
	}
	for i := range s.Players {
		ns.Players[i] = s.Players[i]
		ns.Players[i].Floor = append([]Tile(nil), s.Players[i].Floor...)
	}
	for i := range s.Factories {
		ns.Factories[i] = append([]Tile(nil), s.Factories[i]...)
	}
	return ns
}

// RefillFactories draws tiles from the bag into every factory. Factories
// may come up short when the supply runs out; that is legal.
func (s *State) RefillFactories() {
	for i := range s.Factories {
		s.Factories[i] = s.Bag.DrawUpTo(FactorySize)
	}
}

// DraftingDone reports whether every factory and the center are empty.
func (s *State) DraftingDone() bool {
	for _, f := range s.Factories {
		if len(f) > 0 {
			return false
		}
	}
	return len(s.Center) == 0
}

// TileCounts tallies every tile in the game by color, across bag, lid,
// factories, center, pattern lines, floors, and walls.
func (s *State) TileCounts() [NumColors]int {
	var counts [NumColors]int
	for c := 0; c < NumColors; c++ {
		counts[c] = s.Bag.Draw[c] + s.Bag.Lid[c]
	}
	for _, f := range s.Factories {
		for _, t := range f {
			counts[t]++
		}
	}
	for _, t := range s.Center {
		counts[t]++
	}
	for i := range s.Players {
		pb := &s.Players[i]
		for r := 0; r < NumRows; r++ {
			counts[pb.Lines[r].Color] += pb.Lines[r].Count
		}
		for _, t := range pb.Floor {
			counts[t]++
		}
		for r := 0; r < NumRows; r++ {
			for c := 0; c < NumCols; c++ {
				if pb.Wall[r][c] {
					counts[WallColor(r, c)]++
				}
			}
		}
	}
	return counts
}

// CheckConservation verifies the 100-tile invariant: every color totals
// exactly TilesPerColor across all zones (walls included).
func (s *State) CheckConservation() error {
	counts := s.TileCounts()
	for c := 0; c < NumColors; c++ {
		if counts[c] != TilesPerColor {
			return fmt.Errorf("tile conservation violated: %s has %d tiles, want %d", Tile(c), counts[c], TilesPerColor)
		}
	}
	return nil
}

// Snapshot types form the read-only wire view of a game.

type PlayerSnapshot struct {
	Score          int      `json:"score"`
	Lines          [][]int  `json:"lines"` // [color, count] per row; [-1,0] when empty
	Wall           [][]bool `json:"wall"`
	Floor          []int    `json:"floor"`
	HasStartMarker bool     `json:"has_start_marker"`
}

type Snapshot struct {
	Players      []PlayerSnapshot `json:"players"`
	Factories    [][]int          `json:"factories"`
	Center       []int            `json:"center"`
	CenterMarker bool             `json:"center_marker"`
	BagCount     int              `json:"bag_count"`
	LidCount     int              `json:"lid_count"`
	Current      int              `json:"current_player"`
	Round        int              `json:"round"`
	Phase        string           `json:"phase"`
	EndTriggered bool             `json:"end_triggered"`
}

// Snapshot returns a serializable copy of the visible state. Bag contents
// are reduced to counts so clients cannot peek at the draw order.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Players:      make([]PlayerSnapshot, len(s.Players)),
		Factories:    make([][]int, len(s.Factories)),
		Center:       tilesToInts(s.Center),
		CenterMarker: s.CenterMarker,
		BagCount:     s.Bag.DrawCount(),
		LidCount:     s.Bag.LidCount(),
		Current:      s.Current,
		Round:        s.Round,
		Phase:        s.Phase.String(),
		EndTriggered: s.EndTriggered,
	}
	for i, f := range s.Factories {
		snap.Factories[i] = tilesToInts(f)
	}
	for i := range s.Players {
		pb := &s.Players[i]
		ps := PlayerSnapshot{
			Score:          pb.Score,
			Lines:          make([][]int, NumRows),
			Wall:           make([][]bool, NumRows),
			Floor:          tilesToInts(pb.Floor),
			HasStartMarker: pb.HasStartMarker,
		}
		for r := 0; r < NumRows; r++ {
			if pb.Lines[r].Count == 0 {
				ps.Lines[r] = []int{-1, 0}
			} else {
				ps.Lines[r] = []int{int(pb.Lines[r].Color), pb.Lines[r].Count}
			}
			row := make([]bool, NumCols)
			for c := 0; c < NumCols; c++ {
				row[c] = pb.Wall[r][c]
			}
			ps.Wall[r] = row
		}
		snap.Players[i] = ps
	}
	return snap
}

func tilesToInts(ts []Tile) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = int(t)
	}
	return out
}
