// Package mcts implements PUCT tree search over game states with a
// pluggable position evaluator. The search itself does not care whether
// priors and values come from a neural network or a heuristic rollout.
package mcts

import (
	"context"
	"time"

	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// Evaluator scores a non-terminal position. It returns a prior
// probability for each legal move (aligned with moves, summing to 1) and
// a value vector indexed by seat, each entry in [-1, 1].
type Evaluator interface {
	Evaluate(ctx context.Context, s *game.State, moves []rules.Move) (priors []float32, values []float64, err error)
}

// Config controls a search. Zero values fall back to the defaults.
type Config struct {
	// Iterations is the simulation budget.
	Iterations int
	// MaxTime optionally caps wall time; zero means no cap.
	MaxTime time.Duration
	// Cpuct scales the exploration term.
	Cpuct float64
}

const (
	DefaultIterations = 800
	DefaultCpuct      = 1.0
)

func (c Config) withDefaults() Config {
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.Cpuct <= 0 {
		c.Cpuct = DefaultCpuct
	}
	return c
}
