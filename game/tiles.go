package game

// Tile is one of the five tile colors.
type Tile int8

const (
	Blue Tile = iota
	Yellow
	Red
	Black
	White
)

const (
	// NumColors is the number of distinct tile colors.
	NumColors = 5
	// TilesPerColor is how many tiles of each color exist in a game.
	TilesPerColor = 20
	// TotalTiles is the fixed tile population of a game.
	TotalTiles = NumColors * TilesPerColor

	// NumRows and NumCols describe the wall and pattern line grid.
	NumRows = 5
	NumCols = 5

	// FloorSlots is the number of floor positions that carry a penalty.
	FloorSlots = 7

	// FactorySize is how many tiles each factory display holds when full.
	FactorySize = 4
)

var tileNames = [NumColors]string{"blue", "yellow", "red", "black", "white"}
var tileRunes = [NumColors]byte{'B', 'Y', 'R', 'K', 'W'}

func (t Tile) String() string {
	if t < 0 || t >= NumColors {
		return "?"
	}
	return tileNames[t]
}

// Rune returns a single-letter code for board rendering.
func (t Tile) Rune() byte {
	if t < 0 || t >= NumColors {
		return '?'
	}
	return tileRunes[t]
}

// Valid reports whether t is one of the five playable colors.
func (t Tile) Valid() bool {
	return t >= 0 && t < NumColors
}

// ParseTile maps a color name or single-letter code to a Tile.
func ParseTile(s string) (Tile, bool) {
	for i, name := range tileNames {
		if s == name {
			return Tile(i), true
		}
	}
	if len(s) == 1 {
		for i, r := range tileRunes {
			if s[0] == r || s[0] == r+('a'-'A') {
				return Tile(i), true
			}
		}
	}
	return 0, false
}

// WallColumn returns the column on the wall where color sits in the given
// row. The standard wall shifts each color right by one column per row.
func WallColumn(row int, color Tile) int {
	return (row + int(color)) % NumCols
}

// WallColor is the inverse of WallColumn: the color printed on the wall at
// (row, col).
func WallColor(row, col int) Tile {
	return Tile(((col - row) % NumCols + NumCols) % NumCols)
}
