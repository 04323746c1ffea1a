// Package selfplay generates training data by having the search play
// complete games against itself and recording every drafting decision.
package selfplay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/drakewald/azul-engine/executor/convert"
	"github.com/drakewald/azul-engine/executor/mcts"
	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
	"github.com/drakewald/azul-engine/store"
)

// Config controls one self-play game.
type Config struct {
	// Players is the seat count; defaults to 2.
	Players int
	// Search is the per-move search budget.
	Search mcts.Config
	// TemperatureMoves: for the first N plies the move is sampled from
	// the visit distribution instead of taking the argmax, to diversify
	// openings.
	TemperatureMoves int
	// Source labels rows in the dataset ("selfplay", "eval", ...).
	Source string
	// ModelPath is stamped onto rows so datasets can be filtered by
	// generation; empty for heuristic-evaluated games.
	ModelPath string
}

// GameResult summarizes one finished self-play game.
type GameResult struct {
	GameID string
	Winner int
	Draw   bool
	Scores []int
	Rounds int
	Moves  int
}

const DefaultTemperatureMoves = 10

// PlayGame plays one full game with the given evaluator driving the
// search for every seat. It returns one training row per drafting
// decision, with value targets back-filled from the final outcome.
// A tile conservation violation aborts the game: it means the rules
// engine corrupted state and the data cannot be trusted.
func PlayGame(ctx context.Context, workerID int, cfg Config, eval mcts.Evaluator) ([]store.TrainingRow, GameResult, error) {
	if cfg.Players == 0 {
		cfg.Players = 2
	}
	if cfg.TemperatureMoves == 0 {
		cfg.TemperatureMoves = DefaultTemperatureMoves
	}
	if cfg.Source == "" {
		cfg.Source = "selfplay"
	}

	st, err := game.NewGame(cfg.Players)
	if err != nil {
		return nil, GameResult{}, err
	}

	gameID := uuid.NewString()
	rows := make([]store.TrainingRow, 0, 64)
	moveCount := 0

	for st.Phase != game.PhaseGameOver {
		if err := ctx.Err(); err != nil {
			return nil, GameResult{}, err
		}

		if st.Phase == game.PhaseTiling {
			if err := rules.FinishRound(st); err != nil {
				return nil, GameResult{}, err
			}
			if err := st.CheckConservation(); err != nil {
				log.Error().Err(err).Str("game", gameID).Int("worker", workerID).
					Msg("aborting self-play game")
				return nil, GameResult{}, err
			}
			continue
		}

		actor := st.Current
		tree, err := mcts.Search(ctx, cfg.Search, eval, st)
		if err != nil {
			return nil, GameResult{}, fmt.Errorf("search at move %d: %w", moveCount, err)
		}

		moves := tree.RootMoves()
		policy := tree.Policy()

		featPtr := convert.StateToFeatures(st)
		features := make([]float32, convert.InputSize)
		copy(features, *featPtr)
		convert.PutFeatures(featPtr)

		policySlots := make([]float32, convert.PolicySize)
		for i, mv := range moves {
			policySlots[convert.PolicyIndex(mv)] += float32(policy[i])
		}

		rows = append(rows, store.TrainingRow{
			GameID:          gameID,
			Turn:            int32(moveCount),
			Player:          int32(actor),
			Players:         int32(cfg.Players),
			Round:           int32(st.Round),
			EncodingVersion: convert.EncodingVersion,
			Features:        features,
			Policy:          policySlots,
			Source:          cfg.Source,
			ModelPath:       cfg.ModelPath,
		})

		mv := moves[pickMove(policy, moveCount < cfg.TemperatureMoves)]
		if err := rules.Apply(st, mv); err != nil {
			return nil, GameResult{}, fmt.Errorf("apply at move %d: %w", moveCount, err)
		}
		moveCount++
	}

	values := rules.OutcomeValues(st)
	for i := range rows {
		rows[i].Value = float32(values[rows[i].Player])
	}

	res := rules.FinalResult(st)
	return rows, GameResult{
		GameID: gameID,
		Winner: res.Winner,
		Draw:   res.Draw,
		Scores: res.Scores,
		Rounds: st.Round,
		Moves:  moveCount,
	}, nil
}

// pickMove samples an index from the distribution when temperature is
// on, otherwise takes the argmax.
func pickMove(policy []float64, sample bool) int {
	if sample {
		r := frand.Float64()
		cumulative := 0.0
		for i, p := range policy {
			cumulative += p
			if r < cumulative {
				return i
			}
		}
		return len(policy) - 1
	}
	best := 0
	for i, p := range policy {
		if p > policy[best] {
			best = i
		}
	}
	return best
}
