package mcts

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

const noChild = int32(-1)

// node is one tree position. Nodes live in the Tree's arena slice and
// refer to each other by index, never by pointer: the arena reallocates
// as it grows.
type node struct {
	parent int32
	state  *game.State
	// player is the seat to move at this node; -1 for terminal nodes.
	player int
	moves  []rules.Move
	priors []float32
	// children[i] is the node reached by moves[i], or noChild.
	children []int32
	visits   int
	// valueSum accumulates backed-up value vectors, one entry per seat.
	valueSum []float64
	terminal bool
}

// Tree is a completed (or in-progress) search rooted at one position.
type Tree struct {
	cfg   Config
	eval  Evaluator
	nodes []node
}

// Search runs PUCT simulations from root and returns the resulting tree.
// Each simulation descends by PUCT, expands exactly one new child, and
// backs the child's evaluation up the path. States in the tiling phase
// are resolved in-tree, so factory refills inside the search are sampled
// from the (cloned) bag.
func Search(ctx context.Context, cfg Config, eval Evaluator, root *game.State) (*Tree, error) {
	cfg = cfg.withDefaults()
	t := &Tree{cfg: cfg, eval: eval, nodes: make([]node, 0, cfg.Iterations+1)}

	rootIdx, rootValues, err := t.addNode(ctx, -1, root.Clone())
	if err != nil {
		return nil, err
	}
	if t.nodes[rootIdx].terminal {
		return nil, fmt.Errorf("search from terminal state")
	}
	if len(t.nodes[rootIdx].moves) == 0 {
		return nil, fmt.Errorf("search from state with no legal moves")
	}
	t.backup(rootIdx, rootValues)

	var deadline time.Time
	if cfg.MaxTime > 0 {
		deadline = time.Now().Add(cfg.MaxTime)
	}

	for i := 0; i < cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return t, ctx.Err()
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if err := t.simulate(ctx); err != nil {
			return t, err
		}
	}
	return t, nil
}

// addNode evaluates a freshly reached state and appends it to the arena.
// Tiling-phase states are resolved first. It returns the new index and
// the value vector to back up.
func (t *Tree) addNode(ctx context.Context, parent int32, s *game.State) (int32, []float64, error) {
	if s.Phase == game.PhaseTiling {
		if err := rules.FinishRound(s); err != nil {
			return 0, nil, err
		}
	}

	n := node{parent: parent, state: s, player: -1, valueSum: make([]float64, len(s.Players))}

	if s.Phase == game.PhaseGameOver {
		n.terminal = true
		values := rules.OutcomeValues(s)
		t.nodes = append(t.nodes, n)
		return int32(len(t.nodes) - 1), values, nil
	}

	n.player = s.Current
	n.moves = rules.LegalMoves(s)
	n.children = make([]int32, len(n.moves))
	for i := range n.children {
		n.children[i] = noChild
	}

	priors, values, err := t.eval.Evaluate(ctx, s, n.moves)
	if err != nil {
		return 0, nil, err
	}
	n.priors = priors

	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1), values, nil
}

// simulate runs one selection/expansion/backup pass.
func (t *Tree) simulate(ctx context.Context) error {
	idx := int32(0)
	for {
		n := &t.nodes[idx]
		if n.terminal {
			t.backup(idx, rules.OutcomeValues(n.state))
			return nil
		}

		best := t.selectChild(idx)
		if t.nodes[idx].children[best] != noChild {
			idx = t.nodes[idx].children[best]
			continue
		}

		// Expand: play the selected move on a clone and evaluate it.
		next := t.nodes[idx].state.Clone()
		if err := rules.Apply(next, t.nodes[idx].moves[best]); err != nil {
			return fmt.Errorf("expand: %w", err)
		}
		childIdx, values, err := t.addNode(ctx, idx, next)
		if err != nil {
			return err
		}
		// addNode may have grown the arena; re-index before writing.
		t.nodes[idx].children[best] = childIdx
		t.backup(childIdx, values)
		return nil
	}
}

// selectChild picks the move index maximizing the PUCT score
// Q + c * P * sqrt(N_parent) / (1 + N_child). Unexpanded moves count as
// zero-visit, zero-value children.
func (t *Tree) selectChild(idx int32) int {
	n := &t.nodes[idx]
	sqrtN := math.Sqrt(float64(n.visits))
	best := 0
	bestScore := math.Inf(-1)

	for i := range n.moves {
		q := 0.0
		childVisits := 0
		if ci := n.children[i]; ci != noChild {
			child := &t.nodes[ci]
			childVisits = child.visits
			if child.visits > 0 {
				q = child.valueSum[n.player] / float64(child.visits)
			}
		}
		p := 0.0
		if i < len(n.priors) {
			p = float64(n.priors[i])
		}
		score := q + t.cfg.Cpuct*p*sqrtN/(1+float64(childVisits))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// backup adds the value vector along the path from idx to the root.
func (t *Tree) backup(idx int32, values []float64) {
	for idx != -1 {
		n := &t.nodes[idx]
		n.visits++
		for i, v := range values {
			n.valueSum[i] += v
		}
		idx = n.parent
	}
}

// RootMoves returns the legal moves at the root, in enumeration order.
func (t *Tree) RootMoves() []rules.Move {
	return t.nodes[0].moves
}

// RootVisits returns the root's total visit count.
func (t *Tree) RootVisits() int {
	return t.nodes[0].visits
}

// BestMove returns the most-visited root move. Ties break toward the
// earlier move in enumeration order.
func (t *Tree) BestMove() rules.Move {
	root := &t.nodes[0]
	best := 0
	bestVisits := -1
	for i, ci := range root.children {
		v := 0
		if ci != noChild {
			v = t.nodes[ci].visits
		}
		if v > bestVisits {
			bestVisits = v
			best = i
		}
	}
	return root.moves[best]
}

// Policy returns the normalized root visit distribution, aligned with
// RootMoves.
func (t *Tree) Policy() []float64 {
	root := &t.nodes[0]
	policy := make([]float64, len(root.moves))
	total := 0
	for _, ci := range root.children {
		if ci != noChild {
			total += t.nodes[ci].visits
		}
	}
	if total == 0 {
		for i := range policy {
			policy[i] = 1 / float64(len(policy))
		}
		return policy
	}
	for i, ci := range root.children {
		if ci != noChild {
			policy[i] = float64(t.nodes[ci].visits) / float64(total)
		}
	}
	return policy
}

// RootValue returns the root's mean value for the given seat.
func (t *Tree) RootValue(seat int) float64 {
	root := &t.nodes[0]
	if root.visits == 0 {
		return 0
	}
	return root.valueSum[seat] / float64(root.visits)
}
