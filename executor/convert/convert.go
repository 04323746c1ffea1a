// Package convert encodes game states into the fixed-size float tensors
// the value/policy network consumes, and maps moves onto policy slots.
package convert

import (
	"sync"

	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// EncodingVersion tags every training row so mixed datasets can be
// filtered at training time.
const EncodingVersion = "azul_features_v1"

const (
	// MaxPlayers / MaxFactories fix the tensor shape at the 4-player
	// maximum; smaller games leave the extra blocks zeroed.
	MaxPlayers   = game.MaxPlayers
	MaxFactories = 2*game.MaxPlayers + 1

	factoryBlock = MaxFactories * game.NumColors // per-color counts
	centerBlock  = game.NumColors + 1            // counts + marker flag

	// Per-player block: score, 5 lines x (color one-hot + fill), wall
	// cells, floor occupancy, start marker.
	playerBlock = 1 + game.NumRows*(game.NumColors+1) + game.NumRows*game.NumCols + 1 + 1

	// InputSize is the flat feature vector length.
	InputSize = factoryBlock + centerBlock +
		MaxPlayers*playerBlock + // player boards, rotated so the actor is first
		MaxPlayers + // player count one-hot
		1 + // round number
		2*game.NumColors // bag + lid per-color counts

	// PolicySize is the number of (source, color) policy slots: one per
	// factory/color pair plus one per center color. Destinations share a
	// slot; the search separates them by visit count.
	PolicySize = MaxFactories*game.NumColors + game.NumColors
)

var featurePool = sync.Pool{
	New: func() interface{} {
		b := make([]float32, InputSize)
		return &b
	},
}

// GetFeatures returns a zeroed feature buffer from the pool.
func GetFeatures() *[]float32 {
	return featurePool.Get().(*[]float32)
}

// PutFeatures returns a buffer to the pool.
func PutFeatures(b *[]float32) {
	featurePool.Put(b)
}

// PolicyIndex maps a move onto its policy slot.
func PolicyIndex(mv rules.Move) int {
	if mv.Source == rules.SourceCenter {
		return MaxFactories*game.NumColors + int(mv.Color)
	}
	return mv.Source*game.NumColors + int(mv.Color)
}

// StateToFeatures encodes s from the current player's perspective into a
// pooled float32 slice. Player blocks are rotated so the actor always
// occupies the first block. Caller must return the slice with
// PutFeatures.
func StateToFeatures(s *game.State) *[]float32 {
	dataPtr := GetFeatures()
	data := *dataPtr
	clear(data)

	idx := 0
	for f := 0; f < MaxFactories; f++ {
		if f < len(s.Factories) {
			for _, t := range s.Factories[f] {
				data[idx+int(t)] += 1.0 / game.FactorySize
			}
		}
		idx += game.NumColors
	}

	// The center can accumulate well past a factory's worth of one
	// color; normalize by the full color population.
	for _, t := range s.Center {
		data[idx+int(t)] += 1.0 / game.TilesPerColor
	}
	idx += game.NumColors
	if s.CenterMarker {
		data[idx] = 1
	}
	idx++

	n := len(s.Players)
	for seat := 0; seat < MaxPlayers; seat++ {
		if seat < n {
			p := (s.Current + seat) % n
			encodeBoard(data[idx:idx+playerBlock], &s.Players[p])
		}
		idx += playerBlock
	}

	// Player count one-hot.
	data[idx+n-1] = 1
	idx += MaxPlayers

	// Long games run past round 10; keep the feature in range.
	data[idx] = min(float32(s.Round)/10.0, 1)
	idx++

	for c := 0; c < game.NumColors; c++ {
		data[idx+c] = float32(s.Bag.Draw[c]) / game.TilesPerColor
		data[idx+game.NumColors+c] = float32(s.Bag.Lid[c]) / game.TilesPerColor
	}

	return dataPtr
}

func encodeBoard(out []float32, pb *game.PlayerBoard) {
	idx := 0
	out[idx] = float32(pb.Score) / 100.0
	idx++
	for r := 0; r < game.NumRows; r++ {
		line := pb.Lines[r]
		if line.Count > 0 {
			out[idx+int(line.Color)] = 1
			out[idx+game.NumColors] = float32(line.Count) / float32(r+1)
		}
		idx += game.NumColors + 1
	}
	for r := 0; r < game.NumRows; r++ {
		for c := 0; c < game.NumCols; c++ {
			if pb.Wall[r][c] {
				out[idx] = 1
			}
			idx++
		}
	}
	out[idx] = float32(pb.FloorCount()) / game.FloorSlots
	idx++
	if pb.HasStartMarker {
		out[idx] = 1
	}
}
