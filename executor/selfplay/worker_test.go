package selfplay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakewald/azul-engine/executor/convert"
	"github.com/drakewald/azul-engine/executor/heuristic"
	"github.com/drakewald/azul-engine/executor/mcts"
)

func TestPlayGameProducesConsistentRows(t *testing.T) {
	cfg := Config{
		Players: 2,
		Search:  mcts.Config{Iterations: 20},
		Source:  "test",
	}
	eval := &heuristic.Evaluator{Cutoff: 5}

	rows, result, err := PlayGame(context.Background(), 0, cfg, eval)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, result.Moves, len(rows))
	assert.NotEmpty(t, result.GameID)
	assert.Len(t, result.Scores, 2)
	assert.Greater(t, result.Rounds, 0)

	for i, row := range rows {
		assert.Equal(t, result.GameID, row.GameID)
		assert.Equal(t, int32(i), row.Turn)
		assert.Equal(t, convert.EncodingVersion, row.EncodingVersion)
		assert.Equal(t, "test", row.Source)
		assert.Len(t, row.Features, convert.InputSize)
		assert.Len(t, row.Policy, convert.PolicySize)

		sum := float32(0)
		for _, p := range row.Policy {
			assert.GreaterOrEqual(t, p, float32(0))
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 0.001, "row %d policy mass", i)

		assert.GreaterOrEqual(t, row.Value, float32(-1))
		assert.LessOrEqual(t, row.Value, float32(1))
	}

	// Value targets are back-filled from the outcome: the winner's rows
	// carry non-negative values, losers' non-positive.
	if !result.Draw {
		for _, row := range rows {
			if int(row.Player) == result.Winner {
				assert.GreaterOrEqual(t, row.Value, float32(0))
			} else {
				assert.LessOrEqual(t, row.Value, float32(0))
			}
		}
	}
}

func TestPlayGameHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := PlayGame(ctx, 0, Config{Players: 2}, &heuristic.Evaluator{Cutoff: 5})
	assert.Error(t, err)
}
