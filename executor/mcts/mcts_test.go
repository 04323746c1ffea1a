package mcts

import (
	"context"
	"testing"

	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// flatEvaluator returns uniform priors and zero values, so any signal in
// the search comes purely from terminal outcomes found in the tree.
type flatEvaluator struct{}

func (flatEvaluator) Evaluate(ctx context.Context, s *game.State, moves []rules.Move) ([]float32, []float64, error) {
	priors := make([]float32, len(moves))
	for i := range priors {
		priors[i] = 1 / float32(len(moves))
	}
	return priors, make([]float64, len(s.Players)), nil
}

// winOrFloorState builds a two-player position with exactly two legal
// moves: complete wall row 4 (ending the game with a huge lead) or dump
// the tile on the floor.
func winOrFloorState(t *testing.T) *game.State {
	t.Helper()
	st, err := game.NewGame(2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range st.Factories {
		st.Factories[i] = nil
	}
	st.Center = nil
	st.CenterMarker = false
	st.Factories[0] = []game.Tile{game.Blue}

	pb := &st.Players[0]
	pb.Score = 30
	// Blue is blocked on lines 0-3, open on line 4 where four tiles
	// already wait and four wall cells are tiled.
	for r := 0; r < 4; r++ {
		pb.Wall[r][game.WallColumn(r, game.Blue)] = true
	}
	pb.Lines[4] = game.PatternLine{Color: game.Blue, Count: 4}
	for c := game.Tile(0); c < game.NumColors; c++ {
		if c != game.Blue {
			pb.Wall[4][game.WallColumn(4, c)] = true
		}
	}
	return st
}

func TestSearchFindsWinningMove(t *testing.T) {
	st := winOrFloorState(t)

	moves := rules.LegalMoves(st)
	if len(moves) != 2 {
		t.Fatalf("legal moves = %v, want exactly 2", moves)
	}

	tree, err := Search(context.Background(), Config{Iterations: 500}, flatEvaluator{}, st)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	best := tree.BestMove()
	if best.Dest != 4 {
		t.Fatalf("best move = %v, want placement on line 4", best)
	}

	policy := tree.Policy()
	var winShare float64
	for i, mv := range tree.RootMoves() {
		if mv.Dest == 4 {
			winShare = policy[i]
		}
	}
	if winShare < 0.9 {
		t.Fatalf("winning move visit share = %.3f, want > 0.9 (policy %v)", winShare, policy)
	}
}

func TestSearchVisitAccounting(t *testing.T) {
	st := winOrFloorState(t)

	iters := 200
	tree, err := Search(context.Background(), Config{Iterations: iters}, flatEvaluator{}, st)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	// Root gets the initial evaluation plus one visit per simulation.
	if got := tree.RootVisits(); got != iters+1 {
		t.Fatalf("root visits = %d, want %d", got, iters+1)
	}

	sum := 0.0
	for _, p := range tree.Policy() {
		sum += p
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("policy sums to %f", sum)
	}
}

func TestSearchRespectsContext(t *testing.T) {
	st := winOrFloorState(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, Config{Iterations: 100000}, flatEvaluator{}, st)
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestSearchRejectsTerminalRoot(t *testing.T) {
	st, err := game.NewGame(2)
	if err != nil {
		t.Fatal(err)
	}
	st.Phase = game.PhaseGameOver
	if _, err := Search(context.Background(), Config{}, flatEvaluator{}, st); err == nil {
		t.Fatalf("expected error for terminal root")
	}
}
