// Arena pits agents against each other headlessly and prints a run
// summary. Seats rotate every game so first-player advantage averages
// out across agents.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	agentpkg "github.com/drakewald/azul-engine/executor/agent"
	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

type agentStats struct {
	Spec      string  `json:"spec"`
	Games     int     `json:"games"`
	Wins      int     `json:"wins"`
	Draws     int     `json:"draws"`
	TotalPts  int     `json:"total_points"`
	AvgPoints float64 `json:"avg_points"`
	WinRate   float64 `json:"win_rate"`
}

type runSummary struct {
	Players     int          `json:"players"`
	Games       int          `json:"games"`
	Agents      []agentStats `json:"agents"`
	TotalMoves  int64        `json:"total_moves"`
	TotalRounds int64        `json:"total_rounds"`
	ElapsedSecs float64      `json:"elapsed_secs"`
}

func main() {
	agentSpecs := flag.String("agents", "heuristic,mcts:400", "Comma-separated agent specs, one per seat")
	games := flag.Int("games", 100, "Number of games to play")
	workers := flag.Int("workers", 8, "Concurrent games")
	out := flag.String("out", "", "Write the JSON summary to this path (default stdout)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	specs := strings.Split(*agentSpecs, ",")
	players := len(specs)
	if players < game.MinPlayers || players > game.MaxPlayers {
		log.Fatal().Int("seats", players).Msg("agent count must be between 2 and 4")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stats are indexed by agent (spec position), not by seat.
	var mu sync.Mutex
	stats := make([]agentStats, players)
	for i, spec := range specs {
		stats[i].Spec = strings.TrimSpace(spec)
	}

	// One agent per spec for the whole run. Agents are safe for
	// concurrent games, and network agents hold an ONNX session that
	// must not be re-opened per game.
	roster := make([]agentpkg.Agent, players)
	for i := range stats {
		a, err := agentpkg.New(stats[i].Spec, agentpkg.Options{AllowFallback: true})
		if err != nil {
			log.Fatal().Err(err).Str("spec", stats[i].Spec).Msg("bad agent spec")
		}
		defer a.Close()
		roster[i] = a
	}

	var totalMoves, totalRounds atomic.Int64
	var gameCounter atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)

	for n := 0; n < *games; n++ {
		g.Go(func() error {
			gameNum := int(gameCounter.Add(1)) - 1
			if gctx.Err() != nil {
				return gctx.Err()
			}

			// Rotate seats: agent i sits at seat (i+gameNum)%players.
			agents := make([]agentpkg.Agent, players)
			agentAtSeat := make([]int, players)
			for i := range roster {
				seat := (i + gameNum) % players
				agents[seat] = roster[i]
				agentAtSeat[seat] = i
			}

			res, moves, rounds, err := playGame(gctx, agents)
			if err != nil {
				return err
			}
			totalMoves.Add(int64(moves))
			totalRounds.Add(int64(rounds))

			mu.Lock()
			for seat, ai := range agentAtSeat {
				stats[ai].Games++
				stats[ai].TotalPts += res.Scores[seat]
				if res.Draw {
					if res.Scores[seat] == res.Scores[res.Winner] {
						stats[ai].Draws++
					}
				} else if seat == res.Winner {
					stats[ai].Wins++
				}
			}
			mu.Unlock()

			log.Info().Int("game", gameNum).Ints("scores", res.Scores).
				Int("winner", res.Winner).Bool("draw", res.Draw).Msg("game done")
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("arena run failed")
	}

	summary := runSummary{
		Players:     players,
		Games:       *games,
		Agents:      stats,
		TotalMoves:  totalMoves.Load(),
		TotalRounds: totalRounds.Load(),
		ElapsedSecs: time.Since(start).Seconds(),
	}
	for i := range summary.Agents {
		s := &summary.Agents[i]
		if s.Games > 0 {
			s.AvgPoints = float64(s.TotalPts) / float64(s.Games)
			s.WinRate = float64(s.Wins) / float64(s.Games)
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("marshal summary")
	}
	if *out != "" {
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatal().Err(err).Msg("write summary")
		}
		log.Info().Str("path", *out).Msg("summary written")
	} else {
		fmt.Println(string(data))
	}
}

// playGame runs one full game, each seat driven by its agent. Returns
// the result plus move and round counts.
func playGame(ctx context.Context, agents []agentpkg.Agent) (rules.Result, int, int, error) {
	st, err := game.NewGame(len(agents))
	if err != nil {
		return rules.Result{}, 0, 0, err
	}

	moves := 0
	for st.Phase != game.PhaseGameOver {
		if err := ctx.Err(); err != nil {
			return rules.Result{}, 0, 0, err
		}
		if st.Phase == game.PhaseTiling {
			if err := rules.FinishRound(st); err != nil {
				return rules.Result{}, 0, 0, err
			}
			continue
		}
		mv, err := agents[st.Current].ChooseMove(ctx, st)
		if err != nil {
			return rules.Result{}, 0, 0, err
		}
		if err := rules.Apply(st, mv); err != nil {
			return rules.Result{}, 0, 0, err
		}
		moves++
	}
	return rules.FinalResult(st), moves, st.Round, nil
}
