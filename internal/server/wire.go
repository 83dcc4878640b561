package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaktris/shaktris/internal/ai"
	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/session"
)

// Client message types.
const (
	msgJoinGame         = "join_game"
	msgCreateGame       = "create_game"
	msgTetrominoPlaced  = "tetromino_placed"
	msgChessMove        = "chess_move"
	msgRequestTetromino = "request_tetromino"
	msgGetGameState     = "get_game_state"
	msgRequestSpectate  = "request_spectate"
	msgStopSpectating   = "stop_spectating"
	msgRestartGame      = "restart_game"
)

// clientMessage is the envelope for everything a client sends over the
// socket.
type clientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// response answers exactly one clientMessage.
type response struct {
	Type      string     `json:"type"`
	RequestID string     `json:"requestId,omitempty"`
	OK        bool       `json:"ok"`
	Payload   any        `json:"payload,omitempty"`
	Error     *wireError `json:"error,omitempty"`
}

// eventFrame wraps one bus event for the socket.
type eventFrame struct {
	Type    string `json:"type"`
	GameID  string `json:"gameId"`
	Seq     uint64 `json:"seq"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// wireError is the machine-readable rejection shared by the socket and
// the HTTP surface.
type wireError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

// Error codes.
const (
	codeCollision        = "Collision"
	codeOutOfBounds      = "OutOfBounds"
	codeNotAdjacent      = "NotAdjacent"
	codeNoPathToKing     = "NoPathToKing"
	codeIllegalChessMove = "IllegalChessMove"
	codeWrongPhase       = "WrongPhase"
	codeNotYourTurn      = "NotYourTurn"
	codeTooSoon          = "TooSoon"
	codeInvalidAPIToken  = "InvalidApiToken"
	codePlayerNotInGame  = "PlayerNotInGame"
	codeNotYourPiece     = "NotYourPiece"
	codeProtocol         = "Protocol"
	codeBackpressure     = "Backpressure"
	codeTimeout          = "Timeout"
	codeGameNotFound     = "GameNotFound"
	codeGameClosed       = "GameClosed"
	codeInternal         = "Internal"
)

// errProtocol marks requests the server could not even parse.
var errProtocol = errors.New("protocol error")

// errorBody translates an operation error into its wire form.
func errorBody(err error) *wireError {
	w := &wireError{Message: err.Error()}
	var tooSoon *game.TooSoonError
	switch {
	case errors.As(err, &tooSoon):
		w.Code = codeTooSoon
		w.RetryAfterMs = tooSoon.RetryAfter.Milliseconds()
		if w.RetryAfterMs == 0 {
			w.RetryAfterMs = 1
		}
	case errors.Is(err, board.ErrCollision):
		w.Code = codeCollision
	case errors.Is(err, board.ErrOutOfBounds):
		w.Code = codeOutOfBounds
	case errors.Is(err, board.ErrNotAdjacent):
		w.Code = codeNotAdjacent
	case errors.Is(err, board.ErrNoPathToKing):
		w.Code = codeNoPathToKing
	case errors.Is(err, board.ErrIllegalChessMove), errors.Is(err, board.ErrNoSuchPiece):
		w.Code = codeIllegalChessMove
	case errors.Is(err, board.ErrNotYourPiece):
		w.Code = codeNotYourPiece
	case errors.Is(err, game.ErrWrongPhase):
		w.Code = codeWrongPhase
	case errors.Is(err, game.ErrNotYourTurn):
		w.Code = codeNotYourTurn
	case errors.Is(err, game.ErrPlayerNotInGame), errors.Is(err, session.ErrPlayerNotFound):
		w.Code = codePlayerNotInGame
	case errors.Is(err, game.ErrBackpressure):
		w.Code = codeBackpressure
	case errors.Is(err, game.ErrGameClosed):
		w.Code = codeGameClosed
	case errors.Is(err, session.ErrGameNotFound):
		w.Code = codeGameNotFound
	case errors.Is(err, ai.ErrInvalidAPIToken):
		w.Code = codeInvalidAPIToken
	case errors.Is(err, context.DeadlineExceeded):
		w.Code = codeTimeout
	case errors.Is(err, errProtocol), errors.Is(err, session.ErrNotSpectator):
		w.Code = codeProtocol
	default:
		w.Code = codeInternal
	}
	return w
}

// httpStatus maps an error code to the status used on the HTTP surface.
func httpStatus(code string) int {
	switch code {
	case codeInvalidAPIToken:
		return http.StatusUnauthorized
	case codePlayerNotInGame, codeNotYourPiece:
		return http.StatusForbidden
	case codeGameNotFound:
		return http.StatusNotFound
	case codeGameClosed:
		return http.StatusGone
	case codeTooSoon, codeBackpressure:
		return http.StatusTooManyRequests
	case codeTimeout:
		return http.StatusGatewayTimeout
	case codeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Socket payloads.

type joinPayload struct {
	GameID   string `json:"gameId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"playerName,omitempty"`
}

type joinedPayload struct {
	GameID   string         `json:"gameId"`
	PlayerID string         `json:"playerId"`
	Rejoined bool           `json:"rejoined,omitempty"`
	Snapshot *game.Snapshot `json:"snapshot"`
}

type chessMovePayload struct {
	PieceID string      `json:"pieceId"`
	To      board.Point `json:"targetPosition"`
}

type gameRefPayload struct {
	GameID string `json:"gameId,omitempty"`
}

type spectatePayload struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

// HTTP payloads.

type registerRequest struct {
	Name string `json:"name,omitempty"`
}

type registerResponse struct {
	PlayerID string `json:"playerId"`
	APIToken string `json:"apiToken"`
	Name     string `json:"name"`
}

type addComputerRequest struct {
	APIToken   string `json:"apiToken,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type addComputerResponse struct {
	PlayerID   string `json:"playerId"`
	Difficulty string `json:"difficulty,omitempty"`
}

type computerMoveRequest struct {
	APIToken string          `json:"apiToken"`
	MoveType string          `json:"moveType"`
	MoveData json.RawMessage `json:"moveData"`
}

type chessPiecesResponse struct {
	ChessPieces []game.PieceSnapshot `json:"chessPieces"`
}
