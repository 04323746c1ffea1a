// Interactive terminal game: one human seat against engine agents.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	agentpkg "github.com/drakewald/azul-engine/executor/agent"
	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

func main() {
	opponents := flag.String("opponents", "mcts:400", "Comma-separated agent specs for the non-human seats")
	seat := flag.Int("seat", 0, "Which seat the human plays")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	specs := strings.Split(*opponents, ",")
	players := len(specs) + 1
	if players < game.MinPlayers || players > game.MaxPlayers {
		fmt.Fprintf(os.Stderr, "need 1-3 opponents, got %d\n", len(specs))
		os.Exit(1)
	}
	if *seat < 0 || *seat >= players {
		fmt.Fprintf(os.Stderr, "seat %d out of range\n", *seat)
		os.Exit(1)
	}

	agents := make([]agentpkg.Agent, players)
	ai := 0
	for s := 0; s < players; s++ {
		if s == *seat {
			continue
		}
		a, err := agentpkg.New(strings.TrimSpace(specs[ai]), agentpkg.Options{AllowFallback: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad agent spec %q: %v\n", specs[ai], err)
			os.Exit(1)
		}
		defer a.Close()
		agents[s] = a
		ai++
	}

	st, err := game.NewGame(players)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	for st.Phase != game.PhaseGameOver {
		if st.Phase == game.PhaseTiling {
			if err := rules.FinishRound(st); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("\n--- round %d ---\n", st.Round)
			continue
		}

		if st.Current == *seat {
			printState(st, *seat)
			mv, quit := promptMove(reader, st)
			if quit {
				fmt.Println("bye")
				return
			}
			if err := rules.Apply(st, mv); err != nil {
				fmt.Println(err)
				continue
			}
		} else {
			a := agents[st.Current]
			mv, err := a.ChooseMove(ctx, st)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("player %d (%s): %s\n", st.Current, a.Name(), mv)
			if err := rules.Apply(st, mv); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
	}

	res := rules.FinalResult(st)
	fmt.Println("\n=== final boards ===")
	for i := range st.Players {
		fmt.Printf("player %d:\n%s\n", i, st.Players[i].String())
	}
	if res.Draw {
		fmt.Printf("draw! scores: %v\n", res.Scores)
	} else {
		fmt.Printf("player %d wins! scores: %v\n", res.Winner, res.Scores)
	}
}

func printState(st *game.State, humanSeat int) {
	fmt.Printf("\n===== round %d, your turn (player %d) =====\n", st.Round, humanSeat)
	for i, f := range st.Factories {
		fmt.Printf("factory %d: %s\n", i, tileString(f))
	}
	center := tileString(st.Center)
	if st.CenterMarker {
		center = "[1] " + center
	}
	fmt.Printf("center:    %s\n", center)
	for i := range st.Players {
		tag := ""
		if i == humanSeat {
			tag = " (you)"
		}
		fmt.Printf("\nplayer %d%s:\n%s", i, tag, st.Players[i].String())
	}
}

func tileString(tiles []game.Tile) string {
	if len(tiles) == 0 {
		return "(empty)"
	}
	var sb strings.Builder
	for i, t := range tiles {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(t.Rune())
	}
	return sb.String()
}

func promptMove(reader *bufio.Reader, st *game.State) (rules.Move, bool) {
	moves := rules.LegalMoves(st)
	fmt.Println("\nlegal moves:")
	for i, mv := range moves {
		fmt.Printf("  %2d: %s\n", i, mv)
	}
	for {
		fmt.Print("move number (or q): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return rules.Move{}, true
		}
		line = strings.TrimSpace(line)
		if line == "q" || line == "quit" {
			return rules.Move{}, true
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 || n >= len(moves) {
			fmt.Println("pick a listed move number")
			continue
		}
		return moves[n], false
	}
}
