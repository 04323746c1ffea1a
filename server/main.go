// Game server: hosts a single live game over HTTP + websocket so a
// browser client (or curl) can play against the engine's agents.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:8080", "Listen address")
	modelPath := flag.String("model", "", "ONNX model path for mcts-nn agents (optional)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	gs := newGameServer(*modelPath)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/new", gs.handleNew)
	mux.HandleFunc("/api/state", gs.handleState)
	mux.HandleFunc("/api/moves", gs.handleMoves)
	mux.HandleFunc("/api/move", gs.handleMove)
	mux.HandleFunc("/api/ai-turn", gs.handleAITurn)
	mux.HandleFunc("/ws", gs.handleWS)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", *listen).Msg("game server listening")
	log.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
