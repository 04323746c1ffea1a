package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGamePlayerCounts(t *testing.T) {
	for _, n := range []int{2, 3, 4} {
		st, err := NewGame(n)
		require.NoError(t, err)
		assert.Len(t, st.Players, n)
		assert.Len(t, st.Factories, 2*n+1)
		assert.Equal(t, 1, st.Round)
		assert.True(t, st.CenterMarker)
		assert.Equal(t, PhaseDrafting, st.Phase)
	}

	for _, n := range []int{0, 1, 5, -2} {
		_, err := NewGame(n)
		assert.Error(t, err, "players=%d", n)
	}
}

func TestNewGameFillsFactories(t *testing.T) {
	st, err := NewGame(2)
	require.NoError(t, err)

	drafted := 0
	for _, f := range st.Factories {
		assert.Len(t, f, FactorySize)
		drafted += len(f)
	}
	assert.Equal(t, 5*FactorySize, drafted)
	assert.Equal(t, TotalTiles-drafted, st.Bag.DrawCount())
	require.NoError(t, st.CheckConservation())
}

func TestWallLayout(t *testing.T) {
	// Each color appears exactly once per row and per column.
	for r := 0; r < NumRows; r++ {
		var seen [NumColors]bool
		for c := Tile(0); c < NumColors; c++ {
			col := WallColumn(r, c)
			require.False(t, seen[col])
			seen[col] = true
			assert.Equal(t, c, WallColor(r, col))
		}
	}
	assert.Equal(t, 0, WallColumn(0, Blue))
	assert.Equal(t, 1, WallColumn(0, Yellow))
	assert.Equal(t, 0, WallColumn(4, Yellow))
}

func TestBagDrawAndRefill(t *testing.T) {
	b := &Bag{}
	b.Draw[Red] = 2
	b.Lid[Blue] = 3

	t1, err := b.DrawTile()
	require.NoError(t, err)
	assert.Equal(t, Red, t1)
	t2, err := b.DrawTile()
	require.NoError(t, err)
	assert.Equal(t, Red, t2)

	// Bag now empty; next draw recycles the lid.
	t3, err := b.DrawTile()
	require.NoError(t, err)
	assert.Equal(t, Blue, t3)
	assert.Equal(t, 0, b.LidCount())
	assert.Equal(t, 2, b.DrawCount())
}

func TestBagUnderflow(t *testing.T) {
	b := &Bag{}
	_, err := b.DrawTile()
	assert.ErrorIs(t, err, ErrBagUnderflow)
}

func TestDrawUpToStopsShort(t *testing.T) {
	b := &Bag{}
	b.Draw[White] = 2
	tiles := b.DrawUpTo(4)
	assert.Len(t, tiles, 2)
}

func TestCloneIndependence(t *testing.T) {
	st, err := NewGame(2)
	require.NoError(t, err)

	cl := st.Clone()
	cl.Players[0].Score = 42
	cl.Players[0].Floor = append(cl.Players[0].Floor, Red)
	cl.Players[0].Wall[2][2] = true
	cl.Factories[0] = cl.Factories[0][:0]
	cl.Center = append(cl.Center, Blue)
	cl.Bag.Draw[Blue] = 0
	cl.Current = 1

	assert.Equal(t, 0, st.Players[0].Score)
	assert.Empty(t, st.Players[0].Floor)
	assert.False(t, st.Players[0].Wall[2][2])
	assert.Len(t, st.Factories[0], FactorySize)
	assert.Empty(t, st.Center)
	assert.NotEqual(t, 0, st.Bag.Draw[Blue])
	assert.Equal(t, 0, st.Current)
}

func TestCanPlace(t *testing.T) {
	var pb PlayerBoard

	assert.True(t, pb.CanPlace(2, Red))

	// Line staging a different color refuses.
	pb.Lines[2] = PatternLine{Color: Blue, Count: 1}
	assert.False(t, pb.CanPlace(2, Red))
	assert.True(t, pb.CanPlace(2, Blue))

	// Full line refuses its own color.
	pb.Lines[2].Count = 3
	assert.False(t, pb.CanPlace(2, Blue))

	// Wall cell already tiled refuses the color everywhere in that row.
	var pb2 PlayerBoard
	pb2.Wall[1][WallColumn(1, Yellow)] = true
	assert.False(t, pb2.CanPlace(1, Yellow))
	assert.True(t, pb2.CanPlace(1, Red))

	assert.False(t, pb.CanPlace(-1, Blue))
	assert.False(t, pb.CanPlace(NumRows, Blue))
}

func TestCompleteCounts(t *testing.T) {
	var pb PlayerBoard
	assert.Equal(t, 0, pb.CompleteRows())

	for c := 0; c < NumCols; c++ {
		pb.Wall[1][c] = true
	}
	assert.Equal(t, 1, pb.CompleteRows())

	for r := 0; r < NumRows; r++ {
		pb.Wall[r][3] = true
	}
	assert.Equal(t, 1, pb.CompleteCols())

	for r := 0; r < NumRows; r++ {
		pb.Wall[r][WallColumn(r, Black)] = true
	}
	assert.Equal(t, 1, pb.CompleteColors())
}

func TestFloorCountIncludesMarker(t *testing.T) {
	var pb PlayerBoard
	pb.Floor = []Tile{Red, Red}
	assert.Equal(t, 2, pb.FloorCount())
	pb.HasStartMarker = true
	assert.Equal(t, 3, pb.FloorCount())
}

func TestSnapshotHidesBagContents(t *testing.T) {
	st, err := NewGame(3)
	require.NoError(t, err)
	st.Players[1].Score = 7
	st.Players[1].Lines[2] = PatternLine{Color: Red, Count: 2}

	snap := st.Snapshot()
	assert.Len(t, snap.Players, 3)
	assert.Len(t, snap.Factories, 7)
	assert.Equal(t, st.Bag.DrawCount(), snap.BagCount)
	assert.Equal(t, 7, snap.Players[1].Score)
	assert.Equal(t, []int{int(Red), 2}, snap.Players[1].Lines[2])
	assert.Equal(t, []int{-1, 0}, snap.Players[1].Lines[0])
	assert.Equal(t, "drafting", snap.Phase)
}
