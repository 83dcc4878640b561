package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shaktris/shaktris/internal/ai"
	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody(err)
	writeJSON(w, httpStatus(body.Code), map[string]any{"ok": false, "error": body})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRegister issues credentials for an external computer player.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cred, err := s.registry.Register(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{
		PlayerID: cred.PlayerID,
		APIToken: cred.APIToken,
		Name:     cred.Name,
	})
}

// handleAddComputer adds a computer player to an existing game. With an
// apiToken the registered external player joins; without one a built-in
// bot of the requested difficulty is spawned.
func (s *Server) handleAddComputer(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	var req addComputerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	if req.APIToken != "" {
		cred, err := s.registry.Authenticate(req.APIToken)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, ok := s.coord.Game(gameID); !ok {
			writeError(w, session.ErrGameNotFound)
			return
		}
		_, _, err = s.coord.Join(ctx, session.JoinParams{
			GameID:   gameID,
			PlayerID: cred.PlayerID,
			Name:     cred.Name,
			Kind:     game.ExternalAIPlayer,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, addComputerResponse{PlayerID: cred.PlayerID})
		return
	}

	d, err := ai.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errProtocol, err))
		return
	}
	playerID, err := s.sched.AddBuiltin(ctx, gameID, d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addComputerResponse{PlayerID: playerID, Difficulty: string(d)})
}

// handleComputerMove applies one move submitted by an external computer
// player. Moves run through the same validation as everyone else's.
func (s *Server) handleComputerMove(w http.ResponseWriter, r *http.Request) {
	var req computerMoveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cred, err := s.registry.Authenticate(req.APIToken)
	if err != nil {
		writeError(w, err)
		return
	}
	g, ok := s.coord.Game(r.PathValue("gameId"))
	if !ok {
		writeError(w, session.ErrGameNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	switch req.MoveType {
	case "tetromino":
		var t board.Tetromino
		if err := json.Unmarshal(req.MoveData, &t); err != nil {
			writeError(w, fmt.Errorf("%w: bad tetromino moveData", errProtocol))
			return
		}
		out, err := g.PlaceTetromino(ctx, cred.PlayerID, t)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case "chess":
		var m chessMovePayload
		if err := json.Unmarshal(req.MoveData, &m); err != nil {
			writeError(w, fmt.Errorf("%w: bad chess moveData", errProtocol))
			return
		}
		out, err := g.MoveChess(ctx, cred.PlayerID, m.PieceID, m.To)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeError(w, fmt.Errorf("%w: unknown moveType %q", errProtocol, req.MoveType))
	}
}

// handleAvailableTetrominos previews the caller's upcoming pieces.
func (s *Server) handleAvailableTetrominos(w http.ResponseWriter, r *http.Request) {
	cred, err := s.registry.Authenticate(r.URL.Query().Get("apiToken"))
	if err != nil {
		writeError(w, err)
		return
	}
	g, ok := s.coord.Game(r.PathValue("gameId"))
	if !ok {
		writeError(w, session.ErrGameNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	draw, err := g.AvailableTetrominos(ctx, cred.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draw)
}

// handleChessPieces lists the pieces in a game, optionally filtered by
// player.
func (s *Server) handleChessPieces(w http.ResponseWriter, r *http.Request) {
	g, ok := s.coord.Game(r.PathValue("gameId"))
	if !ok {
		writeError(w, session.ErrGameNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	snap, err := g.Snapshot(ctx, "")
	if err != nil {
		writeError(w, err)
		return
	}
	pieces := snap.ChessPieces
	if pid := r.URL.Query().Get("playerId"); pid != "" {
		filtered := pieces[:0:0]
		for _, pc := range pieces {
			if pc.PlayerID == pid {
				filtered = append(filtered, pc)
			}
		}
		pieces = filtered
	}
	if pieces == nil {
		pieces = []game.PieceSnapshot{}
	}
	writeJSON(w, http.StatusOK, chessPiecesResponse{ChessPieces: pieces})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: bad request body", errProtocol)
}
