package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	agentpkg "github.com/drakewald/azul-engine/executor/agent"
	"github.com/drakewald/azul-engine/game"
	"github.com/drakewald/azul-engine/rules"
)

type gameServer struct {
	mu        sync.Mutex
	state     *game.State
	agents    []agentpkg.Agent
	modelPath string

	subMu sync.Mutex
	subs  map[*websocket.Conn]bool
}

func newGameServer(modelPath string) *gameServer {
	return &gameServer{
		modelPath: modelPath,
		subs:      make(map[*websocket.Conn]bool),
	}
}

type newGameRequest struct {
	Players int      `json:"players"`
	Agents  []string `json:"agents"`
}

type moveRequest struct {
	Color  int `json:"color"`
	Source int `json:"source"`
	Dest   int `json:"dest"`
}

type stateResponse struct {
	Snapshot game.Snapshot `json:"snapshot"`
	GameOver bool          `json:"game_over"`
	Scores   []int         `json:"scores,omitempty"`
	Winner   *int          `json:"winner,omitempty"`
	Draw     bool          `json:"draw,omitempty"`
}

type moveEntry struct {
	Color  int    `json:"color"`
	Source int    `json:"source"`
	Dest   int    `json:"dest"`
	Label  string `json:"label"`
}

// handleNew starts a fresh game. Agents maps seats to agent specs; empty
// or "human" seats are driven through /api/move.
func (gs *gameServer) handleNew(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req newGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Players == 0 {
		req.Players = 2
	}

	st, err := game.NewGame(req.Players)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	agents := make([]agentpkg.Agent, req.Players)
	for i, spec := range req.Agents {
		if i >= req.Players {
			break
		}
		if spec == "" || spec == "human" {
			continue
		}
		if gs.modelPath != "" && spec == "mcts-nn" {
			spec = "mcts-nn::" + gs.modelPath
		}
		a, err := agentpkg.New(spec, agentpkg.Options{AllowFallback: true})
		if err != nil {
			if errors.Is(err, agentpkg.ErrInvalidSpec) {
				http.Error(w, err.Error(), http.StatusBadRequest)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		agents[i] = a
	}

	gs.mu.Lock()
	old := gs.agents
	gs.state = st
	gs.agents = agents
	resp := gs.stateResponseLocked()
	gs.mu.Unlock()

	// Release any inference sessions the previous game's agents held.
	for _, a := range old {
		if a != nil {
			_ = a.Close()
		}
	}

	log.Info().Int("players", req.Players).Strs("agents", req.Agents).Msg("new game")
	gs.broadcast(resp)
	writeJSON(w, resp)
}

func (gs *gameServer) handleState(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.state == nil {
		http.Error(w, "no game in progress", http.StatusNotFound)
		return
	}
	writeJSON(w, gs.stateResponseLocked())
}

func (gs *gameServer) handleMoves(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.state == nil {
		http.Error(w, "no game in progress", http.StatusNotFound)
		return
	}
	moves := rules.LegalMoves(gs.state)
	out := make([]moveEntry, len(moves))
	for i, mv := range moves {
		out[i] = moveEntry{
			Color:  int(mv.Color),
			Source: mv.Source,
			Dest:   mv.Dest,
			Label:  mv.String(),
		}
	}
	writeJSON(w, out)
}

func (gs *gameServer) handleMove(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	gs.mu.Lock()
	if gs.state == nil {
		gs.mu.Unlock()
		http.Error(w, "no game in progress", http.StatusNotFound)
		return
	}
	mv := rules.Move{Color: game.Tile(req.Color), Source: req.Source, Dest: req.Dest}
	if err := rules.Apply(gs.state, mv); err != nil {
		gs.mu.Unlock()
		if errors.Is(err, rules.ErrIllegalMove) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	gs.resolveRoundLocked()
	resp := gs.stateResponseLocked()
	gs.mu.Unlock()

	gs.broadcast(resp)
	writeJSON(w, resp)
}

type aiTurnRequest struct {
	// Agent optionally overrides the seat's configured agent for this
	// one move.
	Agent string `json:"agent"`
}

// handleAITurn makes the agent for the current seat choose and play one
// move. The seat's agent comes from /api/new unless the body names one.
func (gs *gameServer) handleAITurn(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req aiTurnRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	gs.mu.Lock()
	if gs.state == nil {
		gs.mu.Unlock()
		http.Error(w, "no game in progress", http.StatusNotFound)
		return
	}
	if gs.state.Phase != game.PhaseDrafting {
		gs.mu.Unlock()
		http.Error(w, "game is not awaiting a move", http.StatusConflict)
		return
	}
	seat := gs.state.Current
	a := gs.agents[seat]
	if req.Agent != "" {
		override, err := agentpkg.New(req.Agent, agentpkg.Options{AllowFallback: true})
		if err != nil {
			gs.mu.Unlock()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Override agents live for this one request only.
		defer override.Close()
		a = override
	}
	if a == nil {
		gs.mu.Unlock()
		http.Error(w, "current seat has no agent", http.StatusConflict)
		return
	}
	st := gs.state.Clone()
	gs.mu.Unlock()

	// Search outside the lock; it can take a while.
	ctx, cancel := contextWithTimeout(r, 60*time.Second)
	defer cancel()
	mv, err := a.ChooseMove(ctx, st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	gs.mu.Lock()
	if gs.state == nil || gs.state.Current != seat || gs.state.Phase != game.PhaseDrafting {
		gs.mu.Unlock()
		http.Error(w, "game changed while thinking", http.StatusConflict)
		return
	}
	if err := rules.Apply(gs.state, mv); err != nil {
		gs.mu.Unlock()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	gs.resolveRoundLocked()
	resp := gs.stateResponseLocked()
	gs.mu.Unlock()

	log.Info().Int("seat", seat).Str("agent", a.Name()).Str("move", mv.String()).Msg("ai move")
	gs.broadcast(resp)
	writeJSON(w, resp)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS streams a state response after every applied move.
func (gs *gameServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	gs.subMu.Lock()
	gs.subs[conn] = true
	gs.subMu.Unlock()

	gs.mu.Lock()
	if gs.state != nil {
		resp := gs.stateResponseLocked()
		gs.mu.Unlock()
		_ = conn.WriteJSON(resp)
	} else {
		gs.mu.Unlock()
	}

	// Drain reads until the client hangs up.
	go func() {
		defer func() {
			gs.subMu.Lock()
			delete(gs.subs, conn)
			gs.subMu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (gs *gameServer) broadcast(resp stateResponse) {
	gs.subMu.Lock()
	defer gs.subMu.Unlock()
	for conn := range gs.subs {
		if err := conn.WriteJSON(resp); err != nil {
			delete(gs.subs, conn)
			_ = conn.Close()
		}
	}
}

// resolveRoundLocked finishes the tiling phase automatically so clients
// only ever see drafting or game-over states.
func (gs *gameServer) resolveRoundLocked() {
	if gs.state.Phase == game.PhaseTiling {
		if err := rules.FinishRound(gs.state); err != nil {
			log.Error().Err(err).Msg("finish round")
		}
	}
}

func (gs *gameServer) stateResponseLocked() stateResponse {
	resp := stateResponse{Snapshot: gs.state.Snapshot()}
	if gs.state.Phase == game.PhaseGameOver {
		res := rules.FinalResult(gs.state)
		resp.GameOver = true
		resp.Scores = res.Scores
		resp.Draw = res.Draw
		if !res.Draw {
			winner := res.Winner
			resp.Winner = &winner
		}
	}
	return resp
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
