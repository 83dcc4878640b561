package board

import "errors"

// Rule-engine rejections. Validation leaves the position untouched; the
// caller relays the specific error to the submitter.
var (
	ErrCollision        = errors.New("cell is occupied")
	ErrOutOfBounds      = errors.New("placement out of bounds")
	ErrNotAdjacent      = errors.New("placement not adjacent to any occupied cell")
	ErrNoPathToKing     = errors.New("no path to king")
	ErrIllegalChessMove = errors.New("illegal chess move")
	ErrNotYourPiece     = errors.New("piece belongs to another player")
	ErrNoSuchPiece      = errors.New("no such piece")
)
