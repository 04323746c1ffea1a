// Package agent turns textual agent specs like "heuristic" or
// "mcts-nn:800:models/azul.onnx" into move-choosing players. It is the
// shared entry point for the arena runner, the HTTP server, and the
// terminal client.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/drakewald/azul-engine/executor/heuristic"
	"github.com/drakewald/azul-engine/executor/inference"
	"github.com/drakewald/azul-engine/executor/mcts"
	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

// ErrInvalidSpec wraps every agent spec parse failure.
var ErrInvalidSpec = errors.New("invalid agent spec")

// ErrNoLegalMoves is returned when asked to move in a position with no
// legal drafting moves.
var ErrNoLegalMoves = errors.New("no legal moves")

// Agent picks one move for the current player of a drafting-phase state.
// Agents are safe for concurrent ChooseMove calls; Close releases any
// inference session the agent created and must be called exactly once
// when the agent is retired.
type Agent interface {
	Name() string
	ChooseMove(ctx context.Context, s *game.State) (rules.Move, error)
	Close() error
}

// Options tweak agent construction.
type Options struct {
	// Predictor, when set, is used by network agents instead of loading
	// the model path from the spec. Lets callers share a batching client
	// across agents and lets tests stub the network out.
	Predictor inference.Predictor
	// AllowFallback downgrades a network agent to a heuristic-evaluated
	// search when the model cannot be loaded, instead of failing.
	AllowFallback bool
}

// New parses a spec and builds the agent. Supported forms:
//
//	random
//	greedy
//	heuristic
//	mcts[:iterations]
//	mcts-nn[:iterations[:modelpath]]
func New(spec string, opts Options) (Agent, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	switch parts[0] {
	case "random":
		if len(parts) > 1 {
			return nil, fmt.Errorf("%w: random takes no arguments, got %q", ErrInvalidSpec, spec)
		}
		return &randomAgent{}, nil

	case "greedy":
		if len(parts) > 1 {
			return nil, fmt.Errorf("%w: greedy takes no arguments, got %q", ErrInvalidSpec, spec)
		}
		return &greedyAgent{}, nil

	case "heuristic":
		if len(parts) > 1 {
			return nil, fmt.Errorf("%w: heuristic takes no arguments, got %q", ErrInvalidSpec, spec)
		}
		return &heuristicAgent{}, nil

	case "mcts":
		iters, err := parseIterations(parts, 1, spec)
		if err != nil {
			return nil, err
		}
		if len(parts) > 2 {
			return nil, fmt.Errorf("%w: mcts takes at most one argument, got %q", ErrInvalidSpec, spec)
		}
		return newSearchAgent(fmt.Sprintf("mcts:%d", iters), iters, &heuristic.Evaluator{Cutoff: rolloutCutoff}), nil

	case "mcts-nn":
		iters, err := parseIterations(parts, 1, spec)
		if err != nil {
			return nil, err
		}
		modelPath := DefaultModelPath
		if len(parts) > 2 && parts[2] != "" {
			modelPath = parts[2]
		}
		if len(parts) > 3 {
			return nil, fmt.Errorf("%w: mcts-nn takes at most two arguments, got %q", ErrInvalidSpec, spec)
		}

		predictor := opts.Predictor
		if predictor == nil {
			client, err := inference.NewClient(modelPath)
			if err != nil {
				if !opts.AllowFallback {
					return nil, err
				}
				log.Warn().Err(err).Str("model", modelPath).
					Msg("model load failed, falling back to heuristic evaluator")
				return newSearchAgent(fmt.Sprintf("mcts:%d(fallback)", iters), iters, &heuristic.Evaluator{Cutoff: rolloutCutoff}), nil
			}
			predictor = client
		}
		a := newSearchAgent(fmt.Sprintf("mcts-nn:%d", iters), iters, &inference.Evaluator{Client: predictor})
		a.modelPath = modelPath
		// Only sessions the agent opened itself are its to close; an
		// injected Predictor belongs to the caller.
		if opts.Predictor == nil {
			a.closer, _ = predictor.(io.Closer)
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: unknown agent kind %q", ErrInvalidSpec, parts[0])
}

const (
	// DefaultModelPath is where the training loop drops its latest
	// export.
	DefaultModelPath = "models/azul_net.onnx"
	rolloutCutoff    = 30
)

func parseIterations(parts []string, idx int, spec string) (int, error) {
	if len(parts) <= idx || parts[idx] == "" {
		return mcts.DefaultIterations, nil
	}
	n, err := strconv.Atoi(parts[idx])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: bad iteration count in %q", ErrInvalidSpec, spec)
	}
	return n, nil
}

type randomAgent struct{}

func (*randomAgent) Name() string { return "random" }
func (*randomAgent) Close() error { return nil }

func (*randomAgent) ChooseMove(ctx context.Context, s *game.State) (rules.Move, error) {
	moves := rules.LegalMoves(s)
	if len(moves) == 0 {
		return rules.Move{}, ErrNoLegalMoves
	}
	return moves[frand.Intn(len(moves))], nil
}

// greedyAgent takes the first pattern-line move in enumeration order,
// dumping to the floor only when forced. A cheap baseline opponent.
type greedyAgent struct{}

func (*greedyAgent) Name() string { return "greedy" }
func (*greedyAgent) Close() error { return nil }

func (*greedyAgent) ChooseMove(ctx context.Context, s *game.State) (rules.Move, error) {
	moves := rules.LegalMoves(s)
	if len(moves) == 0 {
		return rules.Move{}, ErrNoLegalMoves
	}
	for _, mv := range moves {
		if mv.Dest != rules.DestFloor {
			return mv, nil
		}
	}
	return moves[0], nil
}

type heuristicAgent struct{}

func (*heuristicAgent) Name() string { return "heuristic" }
func (*heuristicAgent) Close() error { return nil }

func (*heuristicAgent) ChooseMove(ctx context.Context, s *game.State) (rules.Move, error) {
	moves := rules.LegalMoves(s)
	if len(moves) == 0 {
		return rules.Move{}, ErrNoLegalMoves
	}
	return heuristic.ChooseMove(s, moves), nil
}

type searchAgent struct {
	name      string
	cfg       mcts.Config
	eval      mcts.Evaluator
	modelPath string
	closer    io.Closer
}

func newSearchAgent(name string, iterations int, eval mcts.Evaluator) *searchAgent {
	return &searchAgent{
		name: name,
		cfg:  mcts.Config{Iterations: iterations},
		eval: eval,
	}
}

func (a *searchAgent) Name() string      { return a.name }
func (a *searchAgent) ModelPath() string { return a.modelPath }

// Close shuts down the inference session the agent opened, if any.
func (a *searchAgent) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

func (a *searchAgent) ChooseMove(ctx context.Context, s *game.State) (rules.Move, error) {
	tree, err := mcts.Search(ctx, a.cfg, a.eval, s)
	if err != nil {
		return rules.Move{}, err
	}
	return tree.BestMove(), nil
}

// Search exposes the full tree for callers that need the visit
// distribution, not just the chosen move.
func (a *searchAgent) Search(ctx context.Context, s *game.State) (*mcts.Tree, error) {
	return mcts.Search(ctx, a.cfg, a.eval, s)
}
