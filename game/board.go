package game

import (
	"fmt"
	"strings"
)

// PatternLine is one staging row on a player board. Count tiles of Color
// are queued; Color is meaningless while Count is zero. Line i holds at
// most i+1 tiles.
type PatternLine struct {
	Color Tile
	Count int
}

// PlayerBoard is one player's side: score track, pattern lines, wall,
// floor line, and whether they hold the first-player marker.
type PlayerBoard struct {
	Score int
	Lines [NumRows]PatternLine
	Wall  [NumRows][NumCols]bool
	Floor []Tile
	// HasStartMarker means the marker sits on this player's floor line,
	// occupying one penalty slot.
	HasStartMarker bool
}

// CanPlace reports whether tiles of the given color may legally be added
// to pattern line row: the line must be empty or already staging that
// color, not full, and the wall cell for that color must be open.
func (pb *PlayerBoard) CanPlace(row int, color Tile) bool {
	if row < 0 || row >= NumRows {
		return false
	}
	line := pb.Lines[row]
	if line.Count > 0 && line.Color != color {
		return false
	}
	if line.Count >= row+1 {
		return false
	}
	if pb.Wall[row][WallColumn(row, color)] {
		return false
	}
	return true
}

// FloorCount returns how many penalty slots are occupied, counting the
// start marker as one.
func (pb *PlayerBoard) FloorCount() int {
	n := len(pb.Floor)
	if pb.HasStartMarker {
		n++
	}
	return n
}

// CompleteRows counts fully tiled wall rows.
func (pb *PlayerBoard) CompleteRows() int {
	n := 0
	for r := 0; r < NumRows; r++ {
		full := true
		for c := 0; c < NumCols; c++ {
			if !pb.Wall[r][c] {
				full = false
				break
			}
		}
		if full {
			n++
		}
	}
	return n
}

// CompleteCols counts fully tiled wall columns.
func (pb *PlayerBoard) CompleteCols() int {
	n := 0
	for c := 0; c < NumCols; c++ {
		full := true
		for r := 0; r < NumRows; r++ {
			if !pb.Wall[r][c] {
				full = false
				break
			}
		}
		if full {
			n++
		}
	}
	return n
}

// CompleteColors counts colors with all five wall cells tiled.
func (pb *PlayerBoard) CompleteColors() int {
	n := 0
	for color := Tile(0); color < NumColors; color++ {
		full := true
		for r := 0; r < NumRows; r++ {
			if !pb.Wall[r][WallColumn(r, color)] {
				full = false
				break
			}
		}
		if full {
			n++
		}
	}
	return n
}

// String renders the board for logs and the terminal client.
func (pb *PlayerBoard) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "score %d\n", pb.Score)
	for r := 0; r < NumRows; r++ {
		// Pattern line, right-aligned so capacity reads naturally.
		for i := 0; i < NumRows-(r+1); i++ {
			sb.WriteString("  ")
		}
		line := pb.Lines[r]
		for i := r; i >= 0; i-- {
			if i < line.Count {
				sb.WriteByte(line.Color.Rune())
			} else {
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		sb.WriteString("| ")
		for c := 0; c < NumCols; c++ {
			if pb.Wall[r][c] {
				sb.WriteByte(WallColor(r, c).Rune())
			} else {
				sb.WriteByte(WallColor(r, c).Rune() + ('a' - 'A'))
			}
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("floor:")
	if pb.HasStartMarker {
		sb.WriteString(" 1")
	}
	for _, t := range pb.Floor {
		sb.WriteByte(' ')
		sb.WriteByte(t.Rune())
	}
	sb.WriteByte('\n')
	return sb.String()
}
