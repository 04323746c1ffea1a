package heuristic

import (
	"context"
	"math"

	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// Evaluator implements mcts.Evaluator without a model: priors come from
// a softmax over the heuristic move scores, values from a single
// epsilon-greedy rollout.
type Evaluator struct {
	// Cutoff caps rollout length in plies; past it the position is
	// scored statically. Zero means roll out to the end of the game.
	Cutoff int
	// Epsilon is the rollout's random-move probability.
	Epsilon float64
}

const (
	DefaultRolloutEpsilon = 0.1
	priorTemperature      = 10.0
)

func (e *Evaluator) Evaluate(ctx context.Context, s *game.State, moves []rules.Move) ([]float32, []float64, error) {
	priors := make([]float32, len(moves))
	maxScore := math.Inf(-1)
	scores := make([]float64, len(moves))
	for i, mv := range moves {
		scores[i] = ScoreMove(s, mv)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}
	sum := 0.0
	for i := range scores {
		w := math.Exp((scores[i] - maxScore) / priorTemperature)
		scores[i] = w
		sum += w
	}
	for i := range priors {
		priors[i] = float32(scores[i] / sum)
	}

	values, err := e.rollout(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return priors, values, nil
}

func (e *Evaluator) rollout(ctx context.Context, s *game.State) ([]float64, error) {
	st := s.Clone()
	eps := e.Epsilon
	if eps == 0 {
		eps = DefaultRolloutEpsilon
	}

	for plies := 0; ; plies++ {
		if st.Phase == game.PhaseTiling {
			if err := rules.FinishRound(st); err != nil {
				return nil, err
			}
		}
		if st.Phase == game.PhaseGameOver {
			return rules.OutcomeValues(st), nil
		}
		if e.Cutoff > 0 && plies >= e.Cutoff {
			return rules.MarginValues(rules.PotentialScores(st)), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		moves := rules.LegalMoves(st)
		if len(moves) == 0 {
			return nil, rules.ErrIllegalMove
		}
		if err := rules.Apply(st, ChooseMoveEpsilon(st, moves, eps)); err != nil {
			return nil, err
		}
	}
}
