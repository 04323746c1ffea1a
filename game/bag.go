package game

import (
	"errors"

	"lukechampine.com/frand"
)

// ErrBagUnderflow is returned when a draw is requested while both the bag
// and the lid are empty.
var ErrBagUnderflow = errors.New("bag underflow: no tiles in bag or lid")

// Bag holds the undrawn tile supply and the box lid of discarded tiles.
// Tiles are stored as per-color counts; a draw picks uniformly over the
// multiset so no explicit shuffle is needed.
type Bag struct {
	Draw [NumColors]int
	Lid  [NumColors]int
}

// NewBag returns a bag holding the full 100-tile supply with an empty lid.
func NewBag() *Bag {
	b := &Bag{}
	for c := 0; c < NumColors; c++ {
		b.Draw[c] = TilesPerColor
	}
	return b
}

// Clone returns a copy of the bag.
func (b *Bag) Clone() *Bag {
	nb := *b
	return &nb
}

// DrawCount returns the number of tiles left to draw.
func (b *Bag) DrawCount() int {
	n := 0
	for _, c := range b.Draw {
		n += c
	}
	return n
}

// LidCount returns the number of tiles in the lid.
func (b *Bag) LidCount() int {
	n := 0
	for _, c := range b.Lid {
		n += c
	}
	return n
}

// Discard moves n tiles of the given color into the lid.
func (b *Bag) Discard(color Tile, n int) {
	b.Lid[color] += n
}

// refillFromLid tips the lid back into the bag. Called automatically when
// a draw finds the bag empty.
func (b *Bag) refillFromLid() {
	for c := 0; c < NumColors; c++ {
		b.Draw[c] += b.Lid[c]
		b.Lid[c] = 0
	}
}

// DrawTile removes one uniformly random tile from the bag. If the bag is
// empty the lid is recycled first; if both are empty it returns
// ErrBagUnderflow.
func (b *Bag) DrawTile() (Tile, error) {
	total := b.DrawCount()
	if total == 0 {
		b.refillFromLid()
		total = b.DrawCount()
		if total == 0 {
			return 0, ErrBagUnderflow
		}
	}

	pick := frand.Intn(total)
	for c := 0; c < NumColors; c++ {
		if pick < b.Draw[c] {
			b.Draw[c]--
			return Tile(c), nil
		}
		pick -= b.Draw[c]
	}
	// Unreachable: pick < total by construction.
	return 0, ErrBagUnderflow
}

// DrawUpTo draws at most n tiles. It stops short without error when the
// supply runs dry mid-refill, which matches the official rule for the case
// where bag and lid together cannot fill the factories.
func (b *Bag) DrawUpTo(n int) []Tile {
	tiles := make([]Tile, 0, n)
	for i := 0; i < n; i++ {
		t, err := b.DrawTile()
		if err != nil {
			break
		}
		tiles = append(tiles, t)
	}
	return tiles
}
