package inference

import (
	"context"
	"math"

	"github.com/drakewald/azul-engine/executor/convert"
	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// Evaluator adapts a Predictor to the search's evaluator interface:
// encode the state, run the network, softmax the policy logits, mask to
// the legal moves, and spread the scalar value across seats.
type Evaluator struct {
	Client Predictor
}

func (e *Evaluator) Evaluate(ctx context.Context, s *game.State, moves []rules.Move) ([]float32, []float64, error) {
	featPtr := convert.StateToFeatures(s)
	policy, value, err := e.Client.Predict(*featPtr)
	convert.PutFeatures(featPtr)
	if err != nil {
		return nil, nil, err
	}

	priors := maskAndNormalize(policy, moves)
	return priors, spreadValue(float64(value), s.Current, len(s.Players)), nil
}

// maskAndNormalize softmaxes the raw logits, then keeps only the slots
// of legal moves and renormalizes. Moves sharing a (source, color) slot
// split its probability evenly. Falls back to uniform when the legal
// mass underflows.
func maskAndNormalize(logits []float32, moves []rules.Move) []float32 {
	probs := softmax(logits)

	slotMoves := make(map[int]int, len(moves))
	for _, mv := range moves {
		slotMoves[convert.PolicyIndex(mv)]++
	}

	priors := make([]float32, len(moves))
	total := float32(0)
	for i, mv := range moves {
		slot := convert.PolicyIndex(mv)
		if slot >= 0 && slot < len(probs) {
			priors[i] = probs[slot] / float32(slotMoves[slot])
			total += priors[i]
		}
	}
	if total <= 1e-8 {
		uniform := float32(1) / float32(len(moves))
		for i := range priors {
			priors[i] = uniform
		}
		return priors
	}
	inv := 1 / total
	for i := range priors {
		priors[i] *= inv
	}
	return priors
}

func softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxV := logits[0]
	for _, l := range logits[1:] {
		if l > maxV {
			maxV = l
		}
	}
	sum := float32(0)
	for i, l := range logits {
		e := float32(math.Exp(float64(l - maxV)))
		out[i] = e
		sum += e
	}
	if sum > 0 {
		inv := 1 / sum
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}

// spreadValue turns the network's scalar (actor's perspective) into a
// per-seat vector: v for the actor, -v shared across opponents. In the
// margin framing one player's lead is the opposition's deficit.
func spreadValue(v float64, actor, players int) []float64 {
	values := make([]float64, players)
	for i := range values {
		if i == actor {
			values[i] = v
		} else {
			values[i] = -v / float64(players-1)
		}
	}
	return values
}
