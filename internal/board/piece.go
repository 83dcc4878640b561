package board

import (
	"encoding/json"
	"fmt"
)

// ChessPieceType identifies a chess piece kind.
type ChessPieceType uint8

const (
	King ChessPieceType = iota
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var pieceNames = [...]string{"king", "queen", "rook", "bishop", "knight", "pawn"}

// String returns the lowercase piece name.
func (t ChessPieceType) String() string {
	if int(t) >= len(pieceNames) {
		return "unknown"
	}
	return pieceNames[t]
}

// ParseChessPieceType parses a lowercase piece name.
func ParseChessPieceType(s string) (ChessPieceType, error) {
	for i, n := range pieceNames {
		if n == s {
			return ChessPieceType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown chess piece type %q", s)
}

// MarshalJSON encodes the type as its lowercase name.
func (t ChessPieceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a lowercase name.
func (t *ChessPieceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseChessPieceType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Value returns a rough material value used by move-picking heuristics.
func (t ChessPieceType) Value() int {
	switch t {
	case Pawn:
		return 100
	case Knight:
		return 320
	case Bishop:
		return 330
	case Rook:
		return 500
	case Queen:
		return 900
	case King:
		return 20000
	default:
		return 0
	}
}

// Orientation is a quarter-turn facing on the ground plane. It defines
// which way a home zone opens and which direction its pawns advance.
type Orientation uint8

const (
	FacingPosZ Orientation = iota
	FacingPosX
	FacingNegZ
	FacingNegX
)

// Forward returns the unit step in the facing direction.
func (o Orientation) Forward() Point {
	switch o % 4 {
	case FacingPosZ:
		return Point{0, 1}
	case FacingPosX:
		return Point{1, 0}
	case FacingNegZ:
		return Point{0, -1}
	default:
		return Point{-1, 0}
	}
}

// ChessPiece is a piece on the board. Its Pos mirrors a chess item in the
// board cells; the two are kept in sync by Position.
type ChessPiece struct {
	ID          string
	Type        ChessPieceType
	PlayerID    string
	Pos         Point
	Orientation Orientation
	HasMoved    bool
}
