// Self-play training data generator. Spawns worker goroutines that each
// play complete games via MCTS, streams the resulting rows to a parquet
// writer loop, and reports throughput either as log lines or a live TUI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/drakewald/azul-engine/executor/heuristic"
	"github.com/drakewald/azul-engine/executor/inference"
	"github.com/drakewald/azul-engine/executor/mcts"
	"github.com/drakewald/azul-engine/executor/selfplay"
	"github.com/drakewald/azul-engine/store"
)

var totalMoves atomic.Int64
var totalGames atomic.Int64

type GameUpdate struct {
	WorkerID int
	Result   selfplay.GameResult
	Examples int
}

type gameWriteRequest struct {
	rows []store.TrainingRow
}

func main() {
	outDir := flag.String("out-dir", "data/generated", "Output directory for generated training parquet batches")
	workers := flag.Int("workers", 32, "Number of self-play workers")
	players := flag.Int("players", 2, "Players per self-play game (2-4)")
	iterations := flag.Int("iterations", 400, "MCTS iterations per move")
	gamesPerFlush := flag.Int("games-per-flush", 50, "Number of games to buffer per parquet flush")
	maxGames := flag.Int64("max-games", 0, "If > 0, stop after generating this many games (across all workers)")
	modelPath := flag.String("model", "", "ONNX model path; empty runs heuristic-evaluated self-play")
	onnxSessions := flag.Int("onnx-sessions", 1, "Number of ONNX Runtime sessions to run in parallel")
	onnxBatchSize := flag.Int("onnx-batch-size", inference.DefaultBatchSize, "ONNX inference batch size")
	onnxBatchTimeout := flag.Duration("onnx-batch-timeout", inference.DefaultBatchTimeout, "Max time to wait for filling an ONNX batch")
	useTUI := flag.Bool("tui", false, "Show a live TUI instead of log output")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// Evaluator setup: shared batching ONNX client(s) when a model is
	// given, otherwise every worker gets its own rollout evaluator.
	var newEvaluator func() mcts.Evaluator
	var statsProvider interface{ Stats() inference.RuntimeStats }

	if *modelPath != "" {
		onnxCfg := inference.ClientConfig{BatchSize: *onnxBatchSize, BatchTimeout: *onnxBatchTimeout}
		var predictor inference.Predictor
		var closer interface{ Close() error }
		if *onnxSessions <= 1 {
			client, err := inference.NewClientWithConfig(*modelPath, onnxCfg)
			if err != nil {
				log.Fatal().Err(err).Msg("create onnx client")
			}
			predictor = client
			closer = client
			statsProvider = client
		} else {
			pool, err := inference.NewClientPoolWithConfig(*modelPath, *onnxSessions, onnxCfg)
			if err != nil {
				log.Fatal().Err(err).Msg("create onnx client pool")
			}
			predictor = pool
			closer = pool
			statsProvider = pool
		}
		defer closer.Close()
		newEvaluator = func() mcts.Evaluator {
			return &inference.Evaluator{Client: predictor}
		}
		log.Info().Str("model", *modelPath).Int("sessions", *onnxSessions).Msg("network self-play")
	} else {
		newEvaluator = func() mcts.Evaluator {
			return &heuristic.Evaluator{Cutoff: 30}
		}
		log.Info().Msg("heuristic self-play (no model)")
	}

	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan gameWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *gamesPerFlush, writeReqs)
		close(writerDone)
	}()

	cfg := selfplay.Config{
		Players:   *players,
		Search:    mcts.Config{Iterations: *iterations},
		ModelPath: *modelPath,
	}

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			eval := newEvaluator()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				rows, result, err := selfplay.PlayGame(ctx, workerID, cfg, eval)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error().Err(err).Int("worker", workerID).Msg("game aborted")
					continue
				}
				totalMoves.Add(int64(result.Moves))
				total := totalGames.Add(1)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}

				writeReqs <- gameWriteRequest{rows: rows}
				select {
				case updates <- GameUpdate{WorkerID: workerID, Result: result, Examples: len(rows)}:
				default:
				}
			}
		}(i)
	}

	if *useTUI {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			log.Fatal().Err(err).Msg("tui")
		}
		cancel()
		workerWG.Wait()
		close(writeReqs)
		<-writerDone
		return
	}

	startTime := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown requested; waiting for workers to finish current games")
			workerWG.Wait()
			close(writeReqs)
			<-writerDone
			log.Info().Int64("games", totalGames.Load()).Msg("shutdown complete, final parquet flush done")
			return
		case update := <-updates:
			log.Info().
				Int("worker", update.WorkerID).
				Int("winner", update.Result.Winner).
				Bool("draw", update.Result.Draw).
				Ints("scores", update.Result.Scores).
				Int("rounds", update.Result.Rounds).
				Int("examples", update.Examples).
				Msg("game finished")
		case <-ticker.C:
			elapsed := time.Since(startTime).Seconds()
			ev := log.Info().
				Float64("games_per_sec", float64(totalGames.Load())/elapsed).
				Float64("moves_per_sec", float64(totalMoves.Load())/elapsed)
			if statsProvider != nil {
				st := statsProvider.Stats()
				ev = ev.Float64("batch_avg", st.AvgBatchSize).
					Int64("batch_last", st.LastBatchSize).
					Int("queue", st.QueueLen)
			}
			ev.Msg("stats")
		}
	}
}

// parquetWriterLoop streams incoming games into a BatchWriter and
// finalizes a batch file every gamesPerFlush games, so row data goes to
// disk as it arrives instead of accumulating in memory.
func parquetWriterLoop(outDir string, gamesPerFlush int, in <-chan gameWriteRequest) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var bw *store.BatchWriter
	flush := func() {
		if bw == nil {
			return
		}
		outPath, rows, games, err := bw.Finalize()
		if err != nil {
			log.Error().Err(err).Msg("parquet flush failed")
		} else if rows > 0 {
			log.Info().Str("path", outPath).Int("games", games).Int("rows", rows).Msg("parquet flush ok")
		}
		bw = nil
	}

	for req := range in {
		if len(req.rows) == 0 {
			continue
		}
		if bw == nil {
			w, err := store.NewBatchWriter(outDir)
			if err != nil {
				log.Error().Err(err).Int("rows", len(req.rows)).Msg("open parquet batch failed, dropping game")
				continue
			}
			bw = w
		}
		if err := bw.WriteGame(req.rows); err != nil {
			log.Error().Err(err).Int("rows", len(req.rows)).Msg("parquet write failed")
			continue
		}
		if bw.Games() >= gamesPerFlush {
			flush()
		}
	}

	flush()
}

// --- TUI ---

type model struct {
	gamesPlayed   int
	totalExamples int
	moves         int64
	startTime     time.Time
	recentGames   []string
	updates       chan GameUpdate
}

func initialModel(updates chan GameUpdate) model {
	return model{startTime: time.Now(), updates: updates}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.moves = totalMoves.Load()
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.totalExamples += msg.Examples
		logMsg := fmt.Sprintf("Worker %d: winner %d scores %v rounds %d ex %d",
			msg.WorkerID, msg.Result.Winner, msg.Result.Scores, msg.Result.Rounds, msg.Examples)
		m.recentGames = append([]string{logMsg}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.gamesPlayed) / duration.Seconds()
	movesPerSec := float64(m.moves) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec = 0
		movesPerSec = 0
	}

	s := fmt.Sprintf("Games Played:   %d\n", m.gamesPlayed)
	s += fmt.Sprintf("Total Examples: %d\n", m.totalExamples)
	s += fmt.Sprintf("Total Moves:    %d\n", m.moves)
	s += fmt.Sprintf("Duration:       %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Games/Sec:      %.2f\n", gamesPerSec)
	s += fmt.Sprintf("Moves/Sec:      %.2f\n\n", movesPerSec)

	s += "Recent Games:\n"
	for _, g := range m.recentGames {
		s += g + "\n"
	}
	s += "\nPress q to quit.\n"
	return s
}
