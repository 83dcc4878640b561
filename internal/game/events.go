package game

import (
	"github.com/shaktris/shaktris/internal/board"
)

// Event types published on a game's stream. Full-state snapshots use
// events.SnapshotType.
const (
	EventPlayerJoined    = "playerJoined"
	EventPlayerLeft      = "playerLeft"
	EventTetrominoPlaced = "tetrominoPlaced"
	EventRowsCleared     = "rowsCleared"
	EventChessMoved      = "chessMoved"
	EventPieceCaptured   = "pieceCaptured"
	EventSkipChess       = "skipChess"
	EventGameStarted     = "gameStarted"
	EventGameEnded       = "gameEnded"
)

// End reasons carried by gameEnded.
const (
	EndReasonKingCaptured  = "kingCaptured"
	EndReasonKingLost      = "kingLost"
	EndReasonOpponentsLeft = "opponentsLeft"
	EndReasonInternalError = "internalError"
)

// Skip reasons carried by skipChess.
const (
	SkipReasonNoLegalMoves = "noLegalMoves"
)

type PlayerJoinedPayload struct {
	PlayerID   string       `json:"playerId"`
	Name       string       `json:"name"`
	IsComputer bool         `json:"isComputer"`
	Rejoined   bool         `json:"rejoined,omitempty"`
	HomeZone   ZoneSnapshot `json:"homeZone"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type TetrominoPlacedPayload struct {
	PlayerID string              `json:"playerId"`
	Type     board.TetrominoType `json:"type"`
	Rotation int                 `json:"rotation"`
	Position board.Point         `json:"position"`
	Cells    []board.Point       `json:"cells"`
}

type RowsClearedPayload struct {
	Lines           []board.Line    `json:"lines"`
	Cells           []board.Point   `json:"cells"`
	FallenCells     []board.Point   `json:"fallenCells,omitempty"`
	DestroyedPieces []PieceSnapshot `json:"destroyedPieces,omitempty"`
}

type ChessMovedPayload struct {
	PlayerID string      `json:"playerId"`
	PieceID  string      `json:"pieceId"`
	From     board.Point `json:"from"`
	To       board.Point `json:"to"`
	Promoted bool        `json:"promoted,omitempty"`
}

type PieceCapturedPayload struct {
	CaptorID string        `json:"captorId"`
	Piece    PieceSnapshot `json:"piece"`
}

type SkipChessPayload struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}

type GameStartedPayload struct {
	GameID string `json:"gameId"`
}

type GameEndedPayload struct {
	Winner    *string `json:"winner"`
	EndReason string  `json:"endReason"`
}
